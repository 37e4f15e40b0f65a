// Package store keeps saved sessions, most recent first, as one JSON list
// under a fixed key.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"node.town/autolingo/model"
)

const SessionsKey = "autolingo_sessions"

// Store never fails its callers: storage problems are logged and read as
// an empty history.
type Store struct {
	backend Backend
	logger  *log.Logger
	mu      sync.Mutex
}

func New(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// load reads the history. ok is false only when the backend could not be
// read; corrupt data reads as an empty history that may be overwritten.
func (s *Store) load(ctx context.Context) (sessions []model.SavedSession, ok bool) {
	data, err := s.backend.Get(ctx, SessionsKey)
	if err != nil {
		s.logger.Error("load sessions", "error", err)
		return []model.SavedSession{}, false
	}
	if len(data) == 0 {
		return []model.SavedSession{}, true
	}

	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Error("corrupt session history", "error", err)
		return []model.SavedSession{}, true
	}
	if sessions == nil {
		sessions = []model.SavedSession{}
	}
	return sessions, true
}

func (s *Store) write(ctx context.Context, sessions []model.SavedSession) {
	data, err := json.Marshal(sessions)
	if err != nil {
		s.logger.Error("encode sessions", "error", err)
		return
	}
	if err := s.backend.Put(ctx, SessionsKey, data); err != nil {
		s.logger.Error("save sessions", "error", err)
	}
}

// Save puts session at the front of the history. If the history cannot be
// read, nothing is written, so existing sessions are never replaced.
func (s *Store) Save(ctx context.Context, session model.SavedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, ok := s.load(ctx)
	if !ok {
		s.logger.Error("session not saved", "id", session.ID)
		return
	}
	sessions = append([]model.SavedSession{session}, sessions...)
	s.write(ctx, sessions)

	s.logger.Info("session saved", "id", session.ID, "entries", len(session.Transcript))
}

func (s *Store) List(ctx context.Context) []model.SavedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, _ := s.load(ctx)
	return sessions
}

func (s *Store) Get(ctx context.Context, id string) (model.SavedSession, bool) {
	for _, session := range s.List(ctx) {
		if session.ID == id {
			return session, true
		}
	}
	return model.SavedSession{}, false
}

// Delete removes the session with id. Unknown ids leave storage untouched.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, ok := s.load(ctx)
	if !ok {
		return false
	}
	kept := sessions[:0:0]
	for _, session := range sessions {
		if session.ID != id {
			kept = append(kept, session)
		}
	}
	if len(kept) == len(sessions) {
		return false
	}

	s.write(ctx, kept)
	s.logger.Info("session deleted", "id", id)
	return true
}

// Backend exposes the underlying key-value backend for other persisted
// state such as UI settings.
func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) Close() error {
	return s.backend.Close()
}
