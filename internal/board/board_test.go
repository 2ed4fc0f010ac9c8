package board

import (
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

func TestRenderSequence(t *testing.T) {
	snap := &engine.Snapshot{
		Topology: engine.TopologySequence,
		GridSize: 3,
		Waypoints: []engine.WaypointView{
			{Row: 0, Col: 0, Number: 1, Visited: true},
			{Row: 2, Col: 2, Number: 2},
		},
		Blocked: []engine.Cell{{Row: 1, Col: 1}},
		Path:    []engine.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}},
	}

	want := "    0 1 2\n" +
		" 0  1-*-@\n" +
		"\n" +
		" 1  . # .\n" +
		"\n" +
		" 2  . . 2\n"

	if got := Render(snap); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderVerticalPath(t *testing.T) {
	snap := &engine.Snapshot{
		Topology:  engine.TopologySequence,
		GridSize:  2,
		Waypoints: []engine.WaypointView{{Row: 0, Col: 1, Number: 1}},
		Path:      []engine.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 1}},
	}

	want := "    0 1\n" +
		" 0  . 1\n" +
		"      |\n" +
		" 1  . @\n"

	if got := Render(snap); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderGraph(t *testing.T) {
	snap := &engine.Snapshot{
		Topology: engine.TopologyGraph,
		GridSize: 2,
		Nodes: []engine.NodeView{
			{Index: 0, Row: 0, Col: 0, Degree: 1, Filled: true, Endpoint: true},
			{Index: 1, Row: 0, Col: 1, Degree: 2, Filled: true},
			{Index: 2, Row: 1, Col: 1, Degree: 1, Filled: true, Endpoint: true},
			{Index: 3, Row: 1, Col: 0},
		},
		Edges: []engine.Edge{{A: 0, B: 1}, {A: 1, B: 2}},
	}

	want := "    0 1\n" +
		" 0  @-*\n" +
		"      |\n" +
		" 1  o @\n"

	if got := Render(snap); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderIgnoresBadEdges(t *testing.T) {
	snap := &engine.Snapshot{
		Topology: engine.TopologyGraph,
		GridSize: 2,
		Nodes:    []engine.NodeView{{Index: 0, Row: 0, Col: 0}},
		Edges:    []engine.Edge{{A: 0, B: 5}},
	}

	got := Render(snap)
	if strings.ContainsAny(got, "-|") {
		t.Errorf("expected no connectors, got\n%s", got)
	}
}

func TestRenderNil(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestWaypointGlyph(t *testing.T) {
	tests := []struct {
		number int
		want   rune
	}{
		{1, '1'},
		{9, '9'},
		{10, 'a'},
		{35, 'z'},
		{36, '+'},
		{0, '+'},
	}

	for _, tt := range tests {
		if got := WaypointGlyph(tt.number); got != tt.want {
			t.Errorf("WaypointGlyph(%d) = %q, want %q", tt.number, got, tt.want)
		}
	}
}

func TestRenderPuzzle(t *testing.T) {
	p := &engine.Puzzle{
		ID:           "tiny",
		Topology:     engine.TopologySequence,
		WinCondition: engine.WinFullCoverage,
		GridSize:     2,
		Waypoints: []engine.Waypoint{
			{Row: 0, Col: 0, Number: 1},
			{Row: 1, Col: 0, Number: 2},
		},
	}

	got, err := RenderPuzzle(p)
	if err != nil {
		t.Fatalf("RenderPuzzle() error = %v", err)
	}
	want := "    0 1\n" +
		" 0  1 .\n" +
		"\n" +
		" 1  2 .\n"
	if got != want {
		t.Errorf("RenderPuzzle() =\n%s\nwant\n%s", got, want)
	}

	if _, err := RenderPuzzle(&engine.Puzzle{ID: "bad", GridSize: 1}); err == nil {
		t.Error("expected error for invalid puzzle")
	}
}
