package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]dialogue.Session
	cfg      Config
	janitor  *janitor
}

// NewMemoryStore creates a store and starts its janitor. Call Close to stop it.
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg = cfg.withDefaults()
	m := &MemoryStore{
		sessions: make(map[string]dialogue.Session),
		cfg:      cfg,
	}
	m.janitor = startJanitor(cfg.JanitorInterval, cfg.Logger, m.purgeExpired)
	return m
}

func (m *MemoryStore) Create(ctx context.Context, sess dialogue.Session) (*dialogue.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := m.cfg.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)

	m.mu.Lock()
	m.sessions[sess.ID] = clone(sess)
	m.mu.Unlock()
	return &sess, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*dialogue.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || !m.cfg.Now().Before(sess.ExpiresAt) {
		return nil, notFound(id)
	}
	out := clone(sess)
	return &out, nil
}

func (m *MemoryStore) Save(ctx context.Context, sess *dialogue.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sessions[sess.ID]
	now := m.cfg.Now()
	if !ok || !now.Before(prev.ExpiresAt) {
		return notFound(sess.ID)
	}
	sess.CreatedAt = prev.CreatedAt
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)
	m.sessions[sess.ID] = clone(*sess)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return notFound(id)
	}
	delete(m.sessions, id)
	if !m.cfg.Now().Before(sess.ExpiresAt) {
		return notFound(id)
	}
	return nil
}

// Close stops the janitor and drops every session.
func (m *MemoryStore) Close() error {
	m.janitor.Stop()
	m.mu.Lock()
	m.sessions = make(map[string]dialogue.Session)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) purgeExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.cfg.Now()
	n := 0
	for id, sess := range m.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// clone copies the parts of a session that could otherwise be shared.
func clone(s dialogue.Session) dialogue.Session {
	s.State = s.State.Clone()
	if s.Options != nil {
		s.Options = append([]scene.Option(nil), s.Options...)
	}
	return s
}
