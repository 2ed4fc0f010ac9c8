// Package websocket provides the live state feed for puzzle sessions.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is served by a read and a
// write goroutine; the hub loop owns registration and fan-out.
//
// Message Protocol:
//
// The server only sends. Every mutation of a session produces one JSON
// message per frame:
//
//	{"session_id": "ab12", "event": "state_update", "state": {...snapshot...}}
//
// Incoming client messages are read and discarded to keep the connection
// alive.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastToSession(sessionID, snapshot)
//
// Session IDs are matched case-insensitively, like the session manager.
package websocket
