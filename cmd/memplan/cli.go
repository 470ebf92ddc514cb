package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/tensorplan/internal/graphfile"
	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/scheduler"
	"github.com/vkngwrapper/tensorplan/target"
	"golang.org/x/exp/slog"
)

type plan struct {
	layout     *target.Layout
	allocators target.Allocators
	result     *scheduler.Result
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memplan",
		Short: "Schedule a tensor graph and plan the memory its tensors occupy",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
		RunE: RunHandler,
	}

	rootCmd.Flags().StringP("target", "t", "", "Target layout file (uses the built-in default layout when empty)")
	rootCmd.Flags().StringP("graph", "g", "", "Graph file to schedule")
	rootCmd.Flags().Bool("json", false, "Print the schedule and detailed region maps as json")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log scheduling decisions to stderr")
	_ = rootCmd.MarkFlagRequired("graph")

	return rootCmd
}

func RunHandler(cmd *cobra.Command, args []string) error {
	targetPath, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	graphPath, err := cmd.Flags().GetString("graph")
	if err != nil {
		return err
	}
	asJson, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	layout := target.Default()
	if targetPath != "" {
		layout, err = target.Load(targetPath)
		if err != nil {
			return err
		}
	}

	graph, err := graphfile.Load(graphPath)
	if err != nil {
		return err
	}

	p, err := schedule(logger, layout, graph)
	if err != nil {
		return err
	}

	if asJson {
		return p.writeJson(cmd.OutOrStdout())
	}

	p.writeTables(cmd.OutOrStdout())
	return nil
}

func schedule(logger *slog.Logger, layout *target.Layout, graph *graphfile.Graph) (*plan, error) {
	allocators, err := layout.NewAllocators(logger)
	if err != nil {
		return nil, err
	}

	ctx := scheduler.NewAllocationContext(logger, allocators.Scheduler())
	result, err := scheduler.New(logger, scheduler.NewDefaultRegistry()).Schedule(graph.Sinks, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to schedule graph for target %q", layout.Name)
	}

	return &plan{
		layout:     layout,
		allocators: allocators,
		result:     result,
	}, nil
}

func (p *plan) memoryTypes() []ir.MemoryType {
	memoryTypes := make([]ir.MemoryType, 0, len(p.allocators))
	for memoryType := range p.allocators {
		memoryTypes = append(memoryTypes, memoryType)
	}
	sort.Slice(memoryTypes, func(i, j int) bool { return memoryTypes[i] < memoryTypes[j] })
	return memoryTypes
}

func (p *plan) writeTables(out io.Writer) {
	var data [][]string
	for step, node := range p.result.ComputeSequence {
		data = append(data, []string{fmt.Sprint(step), node.Name(), node.OpCode().String()})
	}
	renderTable(out, []string{"STEP", "NODE", "OP"}, data)
	fmt.Fprintln(out)

	data = nil
	for _, placed := range p.result.Allocations {
		data = append(data, []string{
			placed.Connector.String(),
			placed.Allocation.MemoryType.String(),
			fmt.Sprintf("%#x", placed.Allocation.Start),
			fmt.Sprint(placed.Allocation.Size),
		})
	}
	renderTable(out, []string{"TENSOR", "MEMORY", "OFFSET", "SIZE"}, data)
	fmt.Fprintln(out)

	data = nil
	for _, memoryType := range p.memoryTypes() {
		allocator := p.allocators[memoryType]
		data = append(data, []string{
			memoryType.String(),
			allocator.Algorithm().String(),
			fmt.Sprint(allocator.Size()),
			fmt.Sprint(allocator.MaxUsage()),
		})
	}
	renderTable(out, []string{"MEMORY", "ALGORITHM", "SIZE", "PEAK"}, data)
}

func renderTable(out io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func (p *plan) writeJson(out io.Writer) error {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	obj.Name("Target").String(p.layout.Name)

	sequence := obj.Name("ComputeSequence").Array()
	for _, node := range p.result.ComputeSequence {
		sequence.String(node.Name())
	}
	sequence.End()

	allocations := obj.Name("Allocations").Array()
	for _, placed := range p.result.Allocations {
		allocation := allocations.Object()
		allocation.Name("Tensor").String(placed.Connector.String())
		allocation.Name("MemoryType").String(placed.Allocation.MemoryType.String())
		allocation.Name("Offset").Int(placed.Allocation.Start)
		allocation.Name("Size").Int(placed.Allocation.Size)
		allocation.End()
	}
	allocations.End()

	regions := obj.Name("Regions").Object()
	for _, memoryType := range p.memoryTypes() {
		p.allocators[memoryType].PrintDetailedMap(regions.Name(memoryType.String()))
	}
	regions.End()

	obj.End()

	if err := writer.Error(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(out, string(writer.Bytes()))
	return err
}

