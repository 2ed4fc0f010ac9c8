// Command validate checks puzzle files before they are served. For every
// .json, .yaml and .yml file in the puzzle directory it checks:
//   - the file parses with no unknown fields
//   - descriptor fields (topology, win condition, grid size 2..20)
//   - node and waypoint placement, directions and blocked cells
//   - puzzle IDs are unique across the directory and the built-in catalog
//
// Sequence puzzles also get a snake-order feasibility note, which never
// fails validation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/zippath/game/catalog"
	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	ID     string
	Valid  bool
	Errors []string
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate puzzle files and the built-in catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "puzzles",
				Usage:   "directory containing puzzle files",
				Sources: cli.EnvVars("PUZZLE_DIR"),
			},
			&cli.BoolFlag{
				Name:  "builtin",
				Value: true,
				Usage: "also validate the built-in catalog",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd.Writer, cmd.String("dir"), cmd.Bool("builtin"))
		},
	}
}

// run validates the directory and prints a report. A missing directory is
// only an error when the built-in catalog is skipped too.
func run(w io.Writer, dir string, builtin bool) error {
	if w == nil {
		w = os.Stdout
	}

	known := map[string]string{}
	failed := false

	if builtin {
		m, err := catalog.NewManager("", nil)
		if err != nil {
			fmt.Fprintf(w, "❌ built-in catalog: %v\n", err)
			failed = true
		} else {
			for _, id := range m.IDs() {
				known[id] = "built-in catalog"
			}
			fmt.Fprintf(w, "✅ built-in catalog: %d puzzles\n", m.Len())
		}
	}

	var results []ValidationResult
	if _, err := os.Stat(dir); err == nil {
		results, err = validateDir(dir, known)
		if err != nil {
			return err
		}
	} else if !builtin {
		return fmt.Errorf("puzzle directory not found: %s", dir)
	} else {
		fmt.Fprintf(w, "ℹ️  no puzzle directory at %s\n", dir)
	}

	if !report(w, results) {
		failed = true
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// validateDir validates every puzzle file in dir, in file-name order.
// known maps puzzle IDs already taken to where they came from.
func validateDir(dir string, known map[string]string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isPuzzleFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	if known == nil {
		known = map[string]string{}
	}

	results := make([]ValidationResult, 0, len(files))
	for _, name := range files {
		result := validatePuzzleFile(filepath.Join(dir, name))
		if result.ID != "" {
			if prev, dup := known[result.ID]; dup {
				result.Valid = false
				result.Errors = []string{fmt.Sprintf("Duplicate puzzle id %q (also in %s)", result.ID, prev)}
			} else {
				known[result.ID] = name
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func isPuzzleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// validatePuzzleFile loads and validates a single puzzle file
func validatePuzzleFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	p, err := catalog.DecodePuzzle(result.File, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.ID = p.ID

	// Informational data
	result.Errors = append(result.Errors, fmt.Sprintf("✓ ID: %s", p.ID))
	if p.Name != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", p.Name))
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Topology: %s (%s)", p.Topology, p.WinCondition))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", p.GridSize, p.GridSize))

	switch p.Topology {
	case engine.TopologyGraph:
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Nodes: %d (%d without direction limits)", len(p.Nodes), engine.CountNeutralNodes(p)))
	case engine.TopologySequence:
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Waypoints: %d", len(p.Waypoints)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Blocked cells: %d", len(p.Blocked)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Playable cells: %d", engine.PlayableCells(p)))
		if err := catalog.CheckSnakeFeasibility(p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ %v", err))
		} else {
			result.Errors = append(result.Errors, "✓ Waypoints follow snake order")
		}
	}

	return result
}

// report prints the results and returns whether every file was valid
func report(w io.Writer, results []ValidationResult) bool {
	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
			fmt.Fprintf(w, "✅ %s\n", r.File)
		} else {
			fmt.Fprintf(w, "❌ %s\n", r.File)
		}
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "   %s\n", msg)
		}
	}

	if len(results) > 0 {
		fmt.Fprintf(w, "\n%d/%d puzzle files valid\n", valid, len(results))
	}
	return valid == len(results)
}
