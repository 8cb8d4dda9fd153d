package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/logging"
)

var log = logging.MustGetLogger("session")

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// idBytes is the random part of a generated id, hex encoded to twice the length
const idBytes = 3

// Manager keeps planning sessions in memory, keyed by lowercase id, and writes
// them through an optional persistence layer.
type Manager struct {
	rounds      map[string]*service.Session
	persistence SessionPersistence
	mu          sync.RWMutex
}

// NewManager creates an in-memory session manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence creates a session manager that saves every new
// session and loads unknown ids from persistence on demand
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		rounds:      make(map[string]*service.Session),
		persistence: persistence,
	}
}

func key(id string) string { return strings.ToLower(id) }

// Create starts a session on a copy of the course's round. An empty id gets a
// random one.
func (m *Manager) Create(id string, courseName string, course *service.Course) (*service.Session, error) {
	if course == nil {
		return nil, fmt.Errorf("course cannot be nil")
	}
	if strings.ContainsAny(id, `/\. `) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.freshIDLocked()
	} else if _, taken := m.rounds[key(id)]; taken {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		CourseName:     courseName,
		Round:          copyRound(course.Round),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.rounds[key(id)] = sess

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			log.Warningf("failed to persist session %s: %v", id, err)
		}
	}
	return sess, nil
}

// copyRound detaches the block map and start pose so planning a session never
// touches the cached course
func copyRound(r planner.Round) planner.Round {
	blocks := make(map[string]board.Color, len(r.Blocks))
	for k, v := range r.Blocks {
		blocks[k] = v
	}
	r.Blocks = blocks
	if r.Start != nil {
		start := *r.Start
		r.Start = &start
	}
	return r
}

// freshIDLocked draws random ids until one is unused in memory and on disk
func (m *Manager) freshIDLocked() string {
	buf := make([]byte, idBytes)
	for {
		rand.Read(buf)
		id := hex.EncodeToString(buf)
		if _, taken := m.rounds[id]; taken {
			continue
		}
		if m.persistence != nil && m.persistence.Exists(id) {
			continue
		}
		return id
	}
}

// Get returns a session by id, ignoring case. Sessions evicted from memory
// are reloaded from persistence.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, ok := m.rounds[key(id)]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.rounds[key(id)]; ok {
		return sess, nil
	}
	m.rounds[key(id)] = loaded
	return loaded, nil
}

// List returns the sessions in memory, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	out := make([]*service.Session, 0, len(m.rounds))
	for _, sess := range m.rounds {
		out = append(out, sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return key(out[i].ID) < key(out[j].ID)
	})
	return out
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.rounds[key(id)]
	delete(m.rounds, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// UpdateLastAccessed marks a session as used now
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.rounds[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one session through persistence
func (m *Manager) Save(id string) error {
	m.mu.RLock()
	sess, ok := m.rounds[key(id)]
	m.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	if m.persistence == nil {
		return nil
	}
	return m.persistence.Save(sess)
}

// EvictIdle drops sessions not used within maxAge from memory. Without
// persistence they are gone; with it they reload on the next Get.
func (m *Manager) EvictIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	for k, sess := range m.rounds {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.rounds, k)
			evicted++
		}
	}
	return evicted
}

// SyncWithStorage drops in-memory sessions whose file was removed from
// persistence, so deleting a session file ends the session
func (m *Manager) SyncWithStorage() int {
	if m.persistence == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for k, sess := range m.rounds {
		if !m.persistence.Exists(sess.ID) {
			delete(m.rounds, k)
			pruned++
		}
	}
	return pruned
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rounds)
}

// LoadPersistedSessions reads every persisted session not already in memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := m.rounds[key(id)]; ok {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			log.Warningf("failed to load persisted session %s: %v", id, err)
			continue
		}
		m.rounds[key(id)] = sess
		loaded++
	}

	if loaded > 0 {
		log.Infof("loaded %d persisted sessions", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory session, reporting how many failed
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			log.Warningf("failed to save session %s: %v", sess.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
