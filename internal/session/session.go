package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// CookieName is the session cookie set on first contact.
const CookieName = "mi_session"

// Store holds the current record of each session in memory. Records are
// replaced whole, never modified in place. Nothing is persisted.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	record   *meeting.Record
	lastSeen time.Time
}

// NewStore creates a store whose idle sessions expire after ttl.
// ttl <= 0 disables expiry.
func NewStore(ttl time.Duration, log zerolog.Logger) *Store {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Store{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "session-store").Logger(),
		stop:     make(chan struct{}),
	}
}

// Get returns the session's current record.
func (s *Store) Get(id string) (*meeting.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.record, true
}

// Put replaces the session's record.
func (s *Store) Put(id string, rec *meeting.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{record: rec, lastSeen: s.now()}
}

// Clear drops the session's record. Reports whether one existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Len returns the number of sessions holding a record.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Prune removes sessions idle longer than the TTL and returns how many.
func (s *Store) Prune() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *Store) Start() {
	go s.loop()
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) loop() {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				s.log.Debug().Int("pruned", n).Int("remaining", s.Len()).Msg("idle sessions pruned")
			}
		case <-s.stop:
			return
		}
	}
}

// ID returns the request's session id, issuing a new cookie when absent.
func ID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
