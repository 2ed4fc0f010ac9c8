package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

func TestSnakeOrder(t *testing.T) {
	got := SnakeOrder(3)
	want := []engine.Cell{
		{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2},
		{Row: 1, Col: 2}, {Row: 1, Col: 1}, {Row: 1, Col: 0},
		{Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2},
	}
	assert.Equal(t, want, got)

	for i := 1; i < len(got); i++ {
		assert.True(t, engine.IsAdjacent(got[i-1], got[i]))
	}
	assert.Nil(t, SnakeOrder(0))
}

func TestCheckSnakeFeasibility(t *testing.T) {
	p := &engine.Puzzle{
		ID:       "snake",
		Topology: engine.TopologySequence,
		GridSize: 3,
		Waypoints: []engine.Waypoint{
			{Row: 0, Col: 0, Number: 1},
			{Row: 1, Col: 1, Number: 2},
			{Row: 2, Col: 2, Number: 3},
		},
	}
	assert.NoError(t, CheckSnakeFeasibility(p))

	// (1,0) is visited after (1,1) along the snake
	p.Waypoints[1] = engine.Waypoint{Row: 1, Col: 0, Number: 3}
	p.Waypoints[2] = engine.Waypoint{Row: 1, Col: 2, Number: 2}
	assert.NoError(t, CheckSnakeFeasibility(p))

	p.Waypoints[1].Number, p.Waypoints[2].Number = 2, 3
	err := CheckSnakeFeasibility(p)
	assert.ErrorIs(t, err, ErrSnakeInfeasible)

	assert.ErrorIs(t, CheckSnakeFeasibility(&engine.Puzzle{GridSize: 3}), ErrNotSequence)
}
