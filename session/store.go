package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/log"
)

var ErrNotFound = errors.New("session not found")

// Store keeps the sessions of the HTTP API.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	opts       Options
	classifier classify.Classifier
}

func NewStore(opts Options, c classify.Classifier) *Store {
	return &Store{
		sessions:   make(map[string]*Session),
		opts:       opts,
		classifier: c,
	}
}

func (st *Store) Create() *Session {
	s := New(st.opts, st.classifier)
	s.ID = uuid.New().String()

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	log.Trace.Printf("session %s created", s.ID)
	return s
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	log.Trace.Printf("session %s deleted", id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
