// Command analyze prints a human-readable report about catalog puzzles:
// topology and win condition, node, waypoint and blocked counts, playable
// cells, direction constraints, snake-order feasibility and the starting
// board. The report is markdown rendered with glamour, or printed as-is
// when the terminal has no color support or --plain is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/zippath/game/catalog"
	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/internal/board"
)

// Analysis is the per-puzzle summary shown in the report
type Analysis struct {
	Index        int
	ID           string
	Name         string
	Topology     engine.Topology
	WinCondition engine.WinCondition
	GridSize     int
	Nodes        int
	NeutralNodes int
	Directional  bool
	Waypoints    int
	Blocked      int
	Playable     int
	Snake        string
	Board        string
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "report on catalog puzzles",
		ArgsUsage: "[puzzle-id ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "directory with extra puzzle files",
				Sources: cli.EnvVars("PUZZLE_DIR"),
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "print markdown without terminal styling",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, err := catalog.NewManager(cmd.String("dir"), nil)
			if err != nil {
				return err
			}

			analyses, err := analyzeCatalog(m, cmd.Args().Slice())
			if err != nil {
				return err
			}

			plain := cmd.Bool("plain") || termenv.EnvColorProfile() == termenv.Ascii
			return printReport(cmd.Writer, buildReport(analyses), plain)
		},
	}
}

// analyzeCatalog analyzes the given puzzle IDs, or the whole catalog when
// ids is empty
func analyzeCatalog(m *catalog.Manager, ids []string) ([]Analysis, error) {
	index := make(map[string]int, m.Len())
	for i, id := range m.IDs() {
		index[id] = i
	}
	if len(ids) == 0 {
		ids = m.IDs()
	}

	analyses := make([]Analysis, 0, len(ids))
	for _, id := range ids {
		p, err := m.Load(id)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analyzePuzzle(index[id], p))
	}
	return analyses, nil
}

// analyzePuzzle summarizes a single validated puzzle
func analyzePuzzle(index int, p *engine.Puzzle) Analysis {
	a := Analysis{
		Index:        index,
		ID:           p.ID,
		Name:         p.Name,
		Topology:     p.Topology,
		WinCondition: p.WinCondition,
		GridSize:     p.GridSize,
		Nodes:        len(p.Nodes),
		NeutralNodes: engine.CountNeutralNodes(p),
		Directional:  p.HasDirectionalConstraints(),
		Waypoints:    len(p.Waypoints),
		Blocked:      len(p.Blocked),
		Playable:     engine.PlayableCells(p),
	}

	if p.Topology == engine.TopologySequence {
		err := catalog.CheckSnakeFeasibility(p)
		switch {
		case err == nil:
			a.Snake = "feasible"
		case errors.Is(err, catalog.ErrSnakeInfeasible):
			a.Snake = err.Error()
		default:
			a.Snake = "n/a"
		}
	}

	rendered, err := board.RenderPuzzle(p)
	if err != nil {
		rendered = fmt.Sprintf("cannot render: %v\n", err)
	}
	a.Board = rendered
	return a
}

// buildReport formats the analyses as markdown
func buildReport(analyses []Analysis) string {
	var sb strings.Builder
	sb.WriteString("# Puzzle analysis\n\n")
	fmt.Fprintf(&sb, "%d puzzles\n", len(analyses))

	for _, a := range analyses {
		title := a.ID
		if a.Name != "" {
			title += ": " + a.Name
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)

		sb.WriteString("| Property | Value |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Catalog index | %d |\n", a.Index)
		fmt.Fprintf(&sb, "| Topology | %s |\n", a.Topology)
		fmt.Fprintf(&sb, "| Win condition | %s |\n", a.WinCondition)
		fmt.Fprintf(&sb, "| Grid | %dx%d |\n", a.GridSize, a.GridSize)

		switch a.Topology {
		case engine.TopologyGraph:
			fmt.Fprintf(&sb, "| Nodes | %d |\n", a.Nodes)
			fmt.Fprintf(&sb, "| Neutral nodes | %d |\n", a.NeutralNodes)
			fmt.Fprintf(&sb, "| Direction constraints | %s |\n", yesNo(a.Directional))
		case engine.TopologySequence:
			fmt.Fprintf(&sb, "| Waypoints | %d |\n", a.Waypoints)
			fmt.Fprintf(&sb, "| Blocked cells | %d |\n", a.Blocked)
			fmt.Fprintf(&sb, "| Playable cells | %d |\n", a.Playable)
			fmt.Fprintf(&sb, "| Snake order | %s |\n", strings.ReplaceAll(a.Snake, "|", "\\|"))
		}

		sb.WriteString("\n```\n")
		sb.WriteString(a.Board)
		sb.WriteString("```\n")
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// printReport writes the markdown, styled unless plain is set
func printReport(w io.Writer, markdown string, plain bool) error {
	if w == nil {
		w = os.Stdout
	}
	if plain {
		_, err := io.WriteString(w, markdown)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
