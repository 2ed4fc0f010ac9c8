package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

func createTestPuzzle() *engine.Puzzle {
	return &engine.Puzzle{
		ID:       "square",
		Name:     "Square",
		Topology: engine.TopologyGraph,
		GridSize: 2,
		Nodes: []engine.Node{
			{Row: 0, Col: 0},
			{Row: 0, Col: 1},
			{Row: 1, Col: 0},
			{Row: 1, Col: 1},
		},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", puzzle)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
		if session.Puzzle.ID != "square" {
			t.Errorf("Expected puzzle 'square', got '%s'", session.Puzzle.ID)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", puzzle)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", puzzle)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", puzzle)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid session ID", func(t *testing.T) {
		_, err := manager.Create("a/b", puzzle)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid puzzle", func(t *testing.T) {
		invalid := createTestPuzzle()
		invalid.Nodes = invalid.Nodes[:1]
		_, err := manager.Create("invalid-test", invalid)
		if !errors.Is(err, engine.ErrInvalidPuzzle) {
			t.Errorf("Expected ErrInvalidPuzzle, got %v", err)
		}
		if _, err := manager.Get("invalid-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed creation must not register a session")
		}
	})
}

func TestManager_EngineOptions(t *testing.T) {
	manager := NewManager(WithEngineOptions(engine.WithHistoryLimit(2)))
	session, err := manager.Create("limited", createTestPuzzle())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	for i := 0; i < 5; i++ {
		session.Engine.AttemptConnect(0, 1)
	}
	if depth := session.Engine.HistoryDepth(); depth != 2 {
		t.Errorf("Expected history depth 2, got %d", depth)
	}
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", createTestPuzzle())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()
	manager.Create("delete-test", puzzle)

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-test", puzzle)
		if err := manager.Delete("CASE-TEST"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if _, err := manager.Get("case-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Expected session to be deleted regardless of case")
		}
	})
}

func TestManager_ListOrder(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(WithClock(func() time.Time { return clock }))
	puzzle := createTestPuzzle()

	for _, id := range []string{"c", "a", "b"} {
		if _, err := manager.Create(id, puzzle); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
		clock = clock.Add(time.Second)
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	got := []string{sessions[0].ID, sessions[1].ID, sessions[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected creation order %v, got %v", want, got)
			break
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()

	active, _ := manager.Create("active", puzzle)
	expired, _ := manager.Create("expired", puzzle)

	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 remaining session, got %d", manager.Count())
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(WithClock(func() time.Time { return clock }))

	session, _ := manager.Create("access-test", createTestPuzzle())
	original := session.LastAccessedAt

	clock = clock.Add(time.Minute)
	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	if !session.LastAccessedAt.After(original) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ""
			if i%2 == 0 {
				id = fmt.Sprintf("named-%d", i)
			}
			if _, err := manager.Create(id, puzzle); err != nil {
				errs <- err
			}
			_ = manager.List()
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 100 {
		t.Errorf("Expected 100 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()

	session1, _ := manager.Create("iso-1", puzzle)
	session2, _ := manager.Create("iso-2", puzzle)

	session1.Engine.AttemptConnect(0, 1)

	if session2.Engine.Moves() != 0 {
		t.Error("Session 2 should not be affected by session 1 moves")
	}
	if session1.Engine.Moves() != 1 {
		t.Errorf("Expected 1 move in session 1, got %d", session1.Engine.Moves())
	}

	// Sessions own independent copies of the descriptor
	puzzle.Nodes[0].Row = 1
	if session1.Puzzle.Nodes[0].Row != 0 {
		t.Error("Session puzzle should not alias the caller's descriptor")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	puzzle := createTestPuzzle()

	generated := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", puzzle)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generated[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generated[session.ID] = true

		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %q", session.ID)
		}
	}
}
