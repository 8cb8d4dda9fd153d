// Package session stores planning sessions and the plans made for them.
//
// Manager keeps sessions in memory, keyed case-insensitively by a random
// 6-character hex id, and optionally writes each one through a
// SessionPersistence. FilePersistence stores one JSON file per session with
// the round and its plan records.
//
// Two append-only archives sit next to the sessions:
//   - HistoryStore, a SQLite table of plan records across all sessions
//   - Journal, hourly zstd compressed JSON lines holding every full plan
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	store, err := session.OpenHistoryStore("data/history.sqlite")
//	journal := session.NewJournal("data/journal", "plans")
//
// The manager is safe for concurrent use.
package session
