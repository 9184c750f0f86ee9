package session

import "sync"

// Store maps conversant identities to sessions. Entries are created on
// first use and never removed. Each identity has its own lock so that
// concurrent messages from one conversant are applied one at a time while
// different conversants proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) entry(identity string) *entry {
	s.mu.RLock()
	e, ok := s.entries[identity]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[identity]; ok {
		return e
	}
	e = &entry{}
	s.entries[identity] = e
	return e
}

// GetOrCreate returns a copy of the identity's session, creating a fresh
// one in StateInitial if none exists.
func (s *Store) GetOrCreate(identity string) Session {
	e := s.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Put replaces the identity's session.
func (s *Store) Put(identity string, sess Session) {
	e := s.entry(identity)
	e.mu.Lock()
	e.sess = sess
	e.mu.Unlock()
}

// Reset clears collected fields and returns the identity to StateInitial.
func (s *Store) Reset(identity string) {
	s.Put(identity, Session{})
}

// Update runs fn with exclusive access to the identity's session. Changes
// fn makes through the pointer are kept even when it returns an error.
func (s *Store) Update(identity string, fn func(*Session) error) error {
	e := s.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.sess)
}

// Len returns the number of identities seen so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
