// Package websocket pushes plan events to the clients watching a session.
//
// A Hub owns the subscriber registry and runs on its own goroutine.
// Clients subscribe with ?session=<id> on the /ws endpoint. Every plan or
// bingo plan computed for that session is broadcast as a JSON Message:
//
//	{"session_id":"ab12","event":"plan","plan":{...}}
//
// The connection is otherwise read-only; incoming frames are discarded and
// only keep the idle deadline alive. Each message is its own text frame.
// Subscribers too slow to drain their outbox are dropped.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastPlan(event)
package websocket
