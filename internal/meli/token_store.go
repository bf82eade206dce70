package meli

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Token is an OAuth token pair scoped to one marketplace user
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given instant
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// TokenStore keeps per-user OAuth tokens with TTL eviction. A background
// janitor drops expired entries so the map does not grow without bound.
type TokenStore struct {
	logger *zap.Logger
	mu     sync.RWMutex
	tokens map[string]*Token
	stop   chan struct{}
}

// NewTokenStore creates a token store and starts its janitor
func NewTokenStore(logger *zap.Logger, sweepInterval time.Duration) *TokenStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	s := &TokenStore{
		logger: logger.Named("token-store"),
		tokens: make(map[string]*Token),
		stop:   make(chan struct{}),
	}
	go s.janitor(sweepInterval)
	return s
}

// Put stores a token for a user
func (s *TokenStore) Put(userID string, token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = token
}

// Get returns the user's token if present and not expired
func (s *TokenStore) Get(userID string) (*Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[userID]
	if !ok || token.Expired(time.Now()) {
		return nil, false
	}
	return token, true
}

// Delete removes a user's token
func (s *TokenStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
}

// Len returns the number of stored tokens, expired ones included
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Close stops the janitor
func (s *TokenStore) Close() {
	close(s.stop)
}

func (s *TokenStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep drops every expired token
func (s *TokenStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, userID)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("Swept expired tokens", zap.Int("removed", removed))
	}
}
