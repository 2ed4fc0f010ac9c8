package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/game/service"
)

//go:embed puzzles/*.json puzzles/*.yaml
var builtinFS embed.FS

const builtinSource = "builtin"

var (
	ErrPuzzleNotFound  = errors.New("puzzle not found")
	ErrDuplicatePuzzle = errors.New("duplicate puzzle id")
	ErrReadOnly        = errors.New("puzzle is read-only")
	ErrNoPuzzleDir     = errors.New("no puzzle directory configured")
	ErrEmptyCatalog    = errors.New("catalog has no puzzles")
)

type entry struct {
	puzzle *engine.Puzzle
	source string
}

// Manager holds the ordered puzzle catalog: the built-in puzzles followed by
// any puzzle files found in the optional directory, in file-name order.
type Manager struct {
	dir     string
	entries []entry
	byID    map[string]int
	// rotation is the catalog size at load time. Puzzles saved later join
	// the daily rotation on the next Reload.
	rotation int
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewManager loads the built-in puzzles and, when dir is non-empty, every
// .json, .yaml and .yml file in dir. Every puzzle is validated.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("puzzle directory does not exist: %s", dir)
		}
	}

	m := &Manager{
		dir:    dir,
		logger: logger,
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload rebuilds the catalog from the embedded files and the directory
func (m *Manager) Reload() error {
	entries, err := loadFS(builtinFS, "puzzles", builtinSource)
	if err != nil {
		return fmt.Errorf("failed to load built-in puzzles: %w", err)
	}

	if m.dir != "" {
		extra, err := loadFS(os.DirFS(m.dir), ".", "")
		if err != nil {
			return fmt.Errorf("failed to load puzzles from %s: %w", m.dir, err)
		}
		entries = append(entries, extra...)
	}
	if len(entries) == 0 {
		return ErrEmptyCatalog
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if prev, dup := byID[e.puzzle.ID]; dup {
			return fmt.Errorf("%w: %q in %s and %s", ErrDuplicatePuzzle, e.puzzle.ID, entries[prev].source, e.source)
		}
		byID[e.puzzle.ID] = i
	}

	m.mu.Lock()
	m.entries = entries
	m.byID = byID
	m.rotation = len(entries)
	m.mu.Unlock()

	m.logger.Info("puzzle catalog loaded", "puzzles", len(entries), "dir", m.dir)
	return nil
}

// loadFS decodes every puzzle file directly under root. An empty source
// labels entries with their file name.
func loadFS(fsys fs.FS, root, source string) ([]entry, error) {
	dirEntries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || !isPuzzleFile(de.Name()) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		p, err := DecodePuzzle(name, data)
		if err != nil {
			return nil, err
		}
		src := source
		if src == "" {
			src = name
		}
		entries = append(entries, entry{puzzle: p, source: src})
	}
	return entries, nil
}

func isPuzzleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// DecodePuzzle parses a puzzle file by extension and validates it. A
// missing id defaults to the file name without its extension.
func DecodePuzzle(name string, data []byte) (*engine.Puzzle, error) {
	var p engine.Puzzle
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if err := engine.ValidatePuzzle(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p.Normalized(), nil
}

// Len returns the number of puzzles in the catalog
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IndexForDate returns the catalog position selected for the given day:
// day-of-year (1 on January 1) modulo the catalog size as last loaded.
func (m *Manager) IndexForDate(t time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return t.YearDay() % m.rotation
}

// ForDate returns a copy of the puzzle of the day
func (m *Manager) ForDate(t time.Time) *engine.Puzzle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[t.YearDay()%m.rotation].puzzle.Clone()
}

// ByIndex returns a copy of the puzzle at index modulo the catalog size.
// Negative indexes wrap from the end.
func (m *Manager) ByIndex(index int) *engine.Puzzle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	i := ((index % n) + n) % n
	return m.entries[i].puzzle.Clone()
}

// Load returns a copy of the puzzle with the given ID
func (m *Manager) Load(id string) (*engine.Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPuzzleNotFound, id)
	}
	return m.entries[i].puzzle.Clone(), nil
}

// IDs returns the puzzle IDs in catalog order
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.entries))
	for i, e := range m.entries {
		ids[i] = e.puzzle.ID
	}
	return ids
}

// List returns information about every puzzle in catalog order
func (m *Manager) List() []*service.PuzzleInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*service.PuzzleInfo, 0, len(m.entries))
	for i, e := range m.entries {
		infos = append(infos, Describe(i, e.puzzle, e.source))
	}
	return infos
}

// Describe summarizes a puzzle for listings
func Describe(index int, p *engine.Puzzle, source string) *service.PuzzleInfo {
	return &service.PuzzleInfo{
		Index:        index,
		PuzzleID:     p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Topology:     p.Topology,
		WinCondition: p.WinCondition,
		GridSize:     p.GridSize,
		Nodes:        len(p.Nodes),
		Waypoints:    len(p.Waypoints),
		Blocked:      len(p.Blocked),
		Source:       source,
	}
}

// Save validates a puzzle and writes it as JSON into the puzzle directory.
// A puzzle with a new ID is appended to the catalog; saving over a file
// puzzle replaces it in place. Built-in puzzles cannot be overwritten.
func (m *Manager) Save(p *engine.Puzzle) error {
	if m.dir == "" {
		return ErrNoPuzzleDir
	}
	if p == nil {
		return fmt.Errorf("%w: puzzle is nil", engine.ErrInvalidPuzzle)
	}
	if err := engine.ValidatePuzzle(p); err != nil {
		return err
	}
	if strings.ContainsAny(p.ID, `/\`) || p.ID == "." || p.ID == ".." {
		return fmt.Errorf("%w: id %q is not a valid file name", engine.ErrInvalidPuzzle, p.ID)
	}
	puzzle := p.Normalized()

	m.mu.Lock()
	defer m.mu.Unlock()

	i, exists := m.byID[puzzle.ID]
	if exists && m.entries[i].source == builtinSource {
		return fmt.Errorf("%w: %q is built in", ErrReadOnly, puzzle.ID)
	}

	filename := puzzle.ID + ".json"
	if exists {
		filename = m.entries[i].source
	}

	data, err := encodePuzzle(filename, puzzle)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(m.dir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	e := entry{puzzle: puzzle, source: filename}
	if exists {
		m.entries[i] = e
	} else {
		m.byID[puzzle.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}

	m.logger.Info("puzzle saved", "puzzle", puzzle.ID, "file", filename)
	return nil
}

func encodePuzzle(filename string, p *engine.Puzzle) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal puzzle: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal puzzle: %w", err)
	}
	return append(data, '\n'), nil
}
