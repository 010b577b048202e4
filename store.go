package auth

import (
	"sync"
	"sync/atomic"
)

var _ SessionReader = &SessionStore{}

// SessionEventType identifies which slice of the store changed.
type SessionEventType string

const (
	SessionIdentitySet     SessionEventType = "session.identity.set"
	SessionIdentityCleared SessionEventType = "session.identity.cleared"
	SessionAdminChanged    SessionEventType = "session.admin.changed"
)

// SessionEvent is delivered to subscribers after each write.
type SessionEvent struct {
	Type       SessionEventType
	HasSession bool
	IsAdmin    bool
}

// SessionStore holds the current identity and the admin flag. It is
// read-only outside this package; writes come only from the Authenticator
// result handlers. Each field is replaced as a whole.
//
// Every write bumps the generation of its slice. Session and admin checks
// commit through commitIdentityIf and commitAdminIf so a check that raced a
// newer write cannot overwrite it.
type SessionStore struct {
	identity atomic.Pointer[Identity]
	admin    atomic.Bool

	// write serializes writers and guards the generation counters.
	write       sync.Mutex
	identityGen uint64
	adminGen    uint64

	mu   sync.Mutex
	subs map[int]chan SessionEvent
	next int
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{subs: map[int]chan SessionEvent{}}
}

// Identity returns the current identity.
func (s *SessionStore) Identity() (*Identity, bool) {
	id := s.identity.Load()
	return id, id != nil
}

// HasSession reports whether an identity is present.
func (s *SessionStore) HasSession() bool {
	return s.identity.Load() != nil
}

// IsAdmin reports the admin flag.
func (s *SessionStore) IsAdmin() bool {
	return s.admin.Load()
}

// Subscribe returns a channel of store changes and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (s *SessionStore) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = map[int]chan SessionEvent{}
	}
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *SessionStore) setIdentity(id *Identity) {
	s.write.Lock()
	s.identityGen++
	evt, changed := s.swapIdentity(id)
	s.write.Unlock()

	if changed {
		s.publish(evt)
	}
}

func (s *SessionStore) clearIdentity() {
	s.setIdentity(nil)
}

func (s *SessionStore) setAdmin(v bool) {
	s.write.Lock()
	s.adminGen++
	changed := s.admin.Swap(v) != v
	s.write.Unlock()

	if changed {
		s.publish(SessionAdminChanged)
	}
}

func (s *SessionStore) identityGeneration() uint64 {
	s.write.Lock()
	defer s.write.Unlock()
	return s.identityGen
}

func (s *SessionStore) adminGeneration() uint64 {
	s.write.Lock()
	defer s.write.Unlock()
	return s.adminGen
}

// commitIdentityIf writes id only when no identity write happened since gen
// was read. It reports whether the write was applied.
func (s *SessionStore) commitIdentityIf(gen uint64, id *Identity) bool {
	s.write.Lock()
	if s.identityGen != gen {
		s.write.Unlock()
		return false
	}
	s.identityGen++
	evt, changed := s.swapIdentity(id)
	s.write.Unlock()

	if changed {
		s.publish(evt)
	}
	return true
}

// commitAdminIf is commitIdentityIf for the admin flag.
func (s *SessionStore) commitAdminIf(gen uint64, v bool) bool {
	s.write.Lock()
	if s.adminGen != gen {
		s.write.Unlock()
		return false
	}
	s.adminGen++
	changed := s.admin.Swap(v) != v
	s.write.Unlock()

	if changed {
		s.publish(SessionAdminChanged)
	}
	return true
}

func (s *SessionStore) swapIdentity(id *Identity) (SessionEventType, bool) {
	if id == nil {
		if s.identity.Swap(nil) == nil {
			return "", false
		}
		return SessionIdentityCleared, true
	}
	s.identity.Store(id)
	return SessionIdentitySet, true
}

func (s *SessionStore) publish(t SessionEventType) {
	evt := SessionEvent{Type: t, HasSession: s.HasSession(), IsAdmin: s.IsAdmin()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
