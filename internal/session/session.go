// Package session holds per-browser-session import state: provider
// credentials, configured hosts, author maps and uploaded catalogs. Nothing
// here touches durable storage; a restart forgets every credential, which is
// the intended lifecycle.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gitporter/gitporter/internal/provider"
)

// ProviderState is the typed per-provider slice of a session. One field per
// concern instead of ad hoc string keys.
type ProviderState struct {
	Credential *provider.Credential
	// OAuthState is the pending handshake nonce; consumed by the callback.
	OAuthState string
	// UserMap maps remote author ids to local user ids, required by kinds
	// whose capabilities say so.
	UserMap map[string]int64
	// Seeds is the uploaded catalog backing offline kinds.
	Seeds []provider.RemoteRepository
	// SeedAuthors are the author identities found in the uploaded catalog.
	SeedAuthors []provider.RemoteAuthor
}

// ImportSession carries all import state for one authenticated browser
// session.
type ImportSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time

	mu        sync.Mutex
	touchedAt time.Time
	providers map[provider.Kind]*ProviderState
}

func (s *ImportSession) state(kind provider.Kind) *ProviderState {
	st, ok := s.providers[kind]
	if !ok {
		st = &ProviderState{}
		s.providers[kind] = st
	}
	return st
}

// Credential returns the stored credential for kind, or nil.
func (s *ImportSession) Credential(kind provider.Kind) *provider.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(kind).Credential
}

func (s *ImportSession) SetCredential(cred *provider.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(cred.Kind).Credential = cred
}

// ClearCredential discards the credential after the provider rejected it.
// The next visit to the provider's entry point restarts authentication.
func (s *ImportSession) ClearCredential(kind provider.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(kind).Credential = nil
}

// BeginOAuth stores a fresh handshake nonce and returns it.
func (s *ImportSession) BeginOAuth(kind provider.Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := uuid.NewString()
	s.state(kind).OAuthState = state
	return state
}

// ConsumeOAuthState verifies the callback nonce against the pending one. The
// nonce is single-use: it is cleared whether or not it matched.
func (s *ImportSession) ConsumeOAuthState(kind provider.Kind, got string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(kind)
	pending := st.OAuthState
	st.OAuthState = ""
	return pending != "" && got != "" && pending == got
}

func (s *ImportSession) UserMap(kind provider.Kind) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.state(kind).UserMap
	if m == nil {
		return nil
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *ImportSession) SetUserMap(kind provider.Kind, userMap map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(kind).UserMap = userMap
}

func (s *ImportSession) Seeds(kind provider.Kind) []provider.RemoteRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(kind).Seeds
}

// SetSeeds stores an uploaded catalog for an offline kind, along with any
// author identities the catalog carried.
func (s *ImportSession) SetSeeds(kind provider.Kind, seeds []provider.RemoteRepository, authors []provider.RemoteAuthor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(kind)
	st.Seeds = seeds
	st.SeedAuthors = authors
}

func (s *ImportSession) SeedAuthors(kind provider.Kind) []provider.RemoteAuthor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(kind).SeedAuthors
}

// Revoke drops every trace of the provider from the session.
func (s *ImportSession) Revoke(kind provider.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providers, kind)
}

// Store is the in-memory session registry. Sessions expire after ttl of
// inactivity; a background sweep reclaims them.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
	ttl      time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*ImportSession),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep()
	return s
}

// Create registers a new session for the user.
func (s *Store) Create(userID int64) *ImportSession {
	now := time.Now()
	sess := &ImportSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		touchedAt: now,
		providers: make(map[provider.Kind]*ProviderState),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session by id, refreshing its expiry, or nil if unknown or
// expired.
func (s *Store) Get(id string) *ImportSession {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	expired := time.Since(sess.touchedAt) > s.ttl
	if !expired {
		sess.touchedAt = time.Now()
	}
	sess.mu.Unlock()

	if expired {
		s.Delete(id)
		return nil
	}
	return sess
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Close stops the expiry sweep.
func (s *Store) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Store) sweep() {
	defer s.wg.Done()
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

func (s *Store) expire() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		stale := now.Sub(sess.touchedAt) > s.ttl
		sess.mu.Unlock()
		if stale {
			delete(s.sessions, id)
		}
	}
}
