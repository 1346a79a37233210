package auth

import (
	"sync"
	"time"
)

// RevocationStore tracks revoked token jtis. Entries carry the token's
// natural expiry and are dropped once that passes — a revocation is
// meaningless for an already-expired token — so the store stays bounded
// by the number of live tokens, not by process uptime.
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *RevocationStore) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.entries[jti] = expiresAt
}

func (s *RevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	expiresAt, ok := s.entries[jti]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if s.now().After(expiresAt) {
		s.mu.Lock()
		delete(s.entries, jti)
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *RevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *RevocationStore) pruneLocked() {
	now := s.now()
	for jti, expiresAt := range s.entries {
		if now.After(expiresAt) {
			delete(s.entries, jti)
		}
	}
}
