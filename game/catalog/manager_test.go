package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/internal/logging"
)

func newBuiltin(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("", logging.NewNop())
	require.NoError(t, err)
	return m
}

func samplePuzzle(id string) *engine.Puzzle {
	return &engine.Puzzle{
		ID:           id,
		Name:         "Sample",
		Topology:     engine.TopologySequence,
		WinCondition: engine.WinWaypointsOnly,
		GridSize:     3,
		Waypoints: []engine.Waypoint{
			{Row: 0, Col: 0, Number: 1},
			{Row: 2, Col: 2, Number: 2},
		},
	}
}

func writePuzzleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestBuiltinCatalog(t *testing.T) {
	m := newBuiltin(t)
	require.Equal(t, 12, m.Len())

	ids := m.IDs()
	assert.Equal(t, "zip-01", ids[0])
	assert.Equal(t, "zip-12", ids[11])

	graphs, sequences := 0, 0
	for _, info := range m.List() {
		switch info.Topology {
		case engine.TopologyGraph:
			graphs++
			assert.Equal(t, engine.WinHamiltonianPath, info.WinCondition)
		case engine.TopologySequence:
			sequences++
		}
		assert.Equal(t, builtinSource, info.Source)
		assert.NotEmpty(t, info.Name)
	}
	assert.Equal(t, 7, graphs)
	assert.Equal(t, 5, sequences)
}

func TestBuiltinPuzzlesLoadIntoEngine(t *testing.T) {
	m := newBuiltin(t)
	for i := 0; i < m.Len(); i++ {
		p := m.ByIndex(i)
		_, err := engine.NewPathEngine(p)
		assert.NoError(t, err, "puzzle %s", p.ID)
	}
}

func TestDeduplicatedDirections(t *testing.T) {
	m := newBuiltin(t)
	p, err := m.Load("zip-02")
	require.NoError(t, err)

	for _, n := range p.Nodes {
		if n.Row == 4 && n.Col == 2 {
			assert.Equal(t, []engine.Direction{engine.Up}, n.Directions)
			return
		}
	}
	t.Fatal("node (4,2) missing from zip-02")
}

func TestForDateDeterminism(t *testing.T) {
	m := newBuiltin(t)
	n := m.Len()

	jan1 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, m.IndexForDate(jan1))
	assert.Equal(t, m.ByIndex(1).ID, m.ForDate(jan1).ID)

	// Same day, different hour
	late := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, m.ForDate(jan1), m.ForDate(late))

	// Days n apart share a day-of-year residue
	later := jan1.AddDate(0, 0, n)
	assert.Equal(t, m.ForDate(jan1), m.ForDate(later))

	// Different year, same day-of-year
	nextYear := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, m.ForDate(jan1), m.ForDate(nextYear))

	assert.NotEqual(t, m.ForDate(jan1).ID, m.ForDate(jan1.AddDate(0, 0, 1)).ID)
}

func TestByIndexWraps(t *testing.T) {
	m := newBuiltin(t)
	n := m.Len()

	assert.Equal(t, m.ByIndex(0).ID, m.ByIndex(n).ID)
	assert.Equal(t, m.ByIndex(3).ID, m.ByIndex(2*n+3).ID)
	assert.Equal(t, m.ByIndex(n-1).ID, m.ByIndex(-1).ID)
}

func TestReturnsIndependentCopies(t *testing.T) {
	m := newBuiltin(t)

	p := m.ByIndex(0)
	p.Nodes[0].Directions[0] = engine.Left
	p.GridSize = 99

	again := m.ByIndex(0)
	assert.Equal(t, 5, again.GridSize)
	assert.NotEqual(t, engine.Left, again.Nodes[0].Directions[0])
}

func TestLoadNotFound(t *testing.T) {
	m := newBuiltin(t)
	_, err := m.Load("missing")
	assert.ErrorIs(t, err, ErrPuzzleNotFound)
}

func TestDirectoryPuzzles(t *testing.T) {
	dir := t.TempDir()
	writePuzzleFile(t, dir, "b-extra.yaml", `
name: Extra
grid_size: 3
waypoints:
  - {row: 0, col: 0, number: 1}
  - {row: 0, col: 2, number: 2}
`)
	data, err := json.Marshal(samplePuzzle("a-first"))
	require.NoError(t, err)
	writePuzzleFile(t, dir, "a-first.json", string(data))
	writePuzzleFile(t, dir, "notes.txt", "ignored")

	m, err := NewManager(dir, logging.NewNop())
	require.NoError(t, err)
	require.Equal(t, 14, m.Len())

	ids := m.IDs()
	assert.Equal(t, "a-first", ids[12])
	assert.Equal(t, "b-extra", ids[13], "id defaults to the file name")

	extra, err := m.Load("b-extra")
	require.NoError(t, err)
	assert.Equal(t, engine.TopologySequence, extra.Topology)
	assert.Equal(t, engine.WinFullCoverage, extra.WinCondition)

	infos := m.List()
	assert.Equal(t, "b-extra.yaml", infos[13].Source)
}

func TestDirectoryErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"), nil)
		assert.Error(t, err)
	})

	t.Run("invalid puzzle", func(t *testing.T) {
		dir := t.TempDir()
		writePuzzleFile(t, dir, "bad.json", `{"id":"bad","topology":"sequence","grid_size":3,"waypoints":[{"row":0,"col":0,"number":2}]}`)
		_, err := NewManager(dir, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrInvalidPuzzle)
		assert.Contains(t, err.Error(), "bad.json")
	})

	t.Run("unknown field", func(t *testing.T) {
		dir := t.TempDir()
		writePuzzleFile(t, dir, "typo.json", `{"id":"typo","grid_sise":3}`)
		_, err := NewManager(dir, nil)
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		dir := t.TempDir()
		data, err := json.Marshal(samplePuzzle("zip-01"))
		require.NoError(t, err)
		writePuzzleFile(t, dir, "clash.json", string(data))
		_, err = NewManager(dir, nil)
		assert.ErrorIs(t, err, ErrDuplicatePuzzle)
	})
}

func TestSave(t *testing.T) {
	t.Run("without directory", func(t *testing.T) {
		m := newBuiltin(t)
		assert.ErrorIs(t, m.Save(samplePuzzle("new")), ErrNoPuzzleDir)
	})

	t.Run("new puzzle is appended and written", func(t *testing.T) {
		dir := t.TempDir()
		m, err := NewManager(dir, logging.NewNop())
		require.NoError(t, err)

		day := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
		before := m.ForDate(day).ID

		require.NoError(t, m.Save(samplePuzzle("custom")))
		assert.Equal(t, 13, m.Len())
		assert.FileExists(t, filepath.Join(dir, "custom.json"))

		// The daily rotation keeps its size until the catalog is reloaded
		assert.Equal(t, before, m.ForDate(day).ID)
		assert.Equal(t, 0, m.IndexForDate(day))
		require.NoError(t, m.Reload())
		assert.Equal(t, 12, m.IndexForDate(day))
		assert.Equal(t, "custom", m.ForDate(day).ID)

		// A fresh manager sees the saved file
		reloaded, err := NewManager(dir, logging.NewNop())
		require.NoError(t, err)
		p, err := reloaded.Load("custom")
		require.NoError(t, err)
		assert.Equal(t, "Sample", p.Name)
	})

	t.Run("overwrite keeps position", func(t *testing.T) {
		dir := t.TempDir()
		m, err := NewManager(dir, logging.NewNop())
		require.NoError(t, err)
		require.NoError(t, m.Save(samplePuzzle("custom")))

		updated := samplePuzzle("custom")
		updated.Name = "Renamed"
		require.NoError(t, m.Save(updated))
		assert.Equal(t, 13, m.Len())

		p, err := m.Load("custom")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", p.Name)
	})

	t.Run("built-in is read-only", func(t *testing.T) {
		m, err := NewManager(t.TempDir(), logging.NewNop())
		require.NoError(t, err)
		assert.ErrorIs(t, m.Save(samplePuzzle("zip-03")), ErrReadOnly)
	})

	t.Run("invalid puzzle", func(t *testing.T) {
		m, err := NewManager(t.TempDir(), logging.NewNop())
		require.NoError(t, err)
		bad := samplePuzzle("bad")
		bad.Waypoints = nil
		assert.ErrorIs(t, m.Save(bad), engine.ErrInvalidPuzzle)
	})

	t.Run("path in id", func(t *testing.T) {
		m, err := NewManager(t.TempDir(), logging.NewNop())
		require.NoError(t, err)
		assert.ErrorIs(t, m.Save(samplePuzzle("../escape")), engine.ErrInvalidPuzzle)
	})
}

func TestConcurrentAccess(t *testing.T) {
	m, err := NewManager(t.TempDir(), logging.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = m.ForDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i))
			_ = m.List()
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = m.Save(samplePuzzle("concurrent"))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 13, m.Len())
}
