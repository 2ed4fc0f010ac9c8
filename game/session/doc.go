// Package session provides in-memory session management for the Zip path
// puzzle.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique 4-character session ID generation
//   - Session expiration
//
// Each session owns one engine.PathEngine built from its own copy of the
// puzzle descriptor. Sessions are never persisted; restarting the process
// discards them.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithLogger(logger),
//		session.WithEngineOptions(engine.WithHistoryLimit(200)),
//	)
//
//	sess, err := manager.Create("", puzzle)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Engine.AttemptConnect(0, 1)
//
// The manager guards its map; callers serialize access to a session's
// engine (the service layer holds a lock around every operation).
package session
