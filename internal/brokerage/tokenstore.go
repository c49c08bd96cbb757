package brokerage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Credentials is the persisted shape spec §6 names: "Persisted state...
// may be persisted to a single file (JSON-shaped) containing
// {accessToken, refreshToken, issuedAt, expiresIn}."
type Credentials struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	IssuedAt     time.Time     `json:"issuedAt"`
	ExpiresIn    time.Duration `json:"expiresIn"`
}

// Expired reports whether the access token has passed its issued-at +
// expires-in window, with a small safety margin so a caller refreshes
// slightly ahead of the brokerage's own cutoff.
func (c Credentials) Expired(now time.Time, margin time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	return !now.Before(c.IssuedAt.Add(c.ExpiresIn - margin))
}

// TokenStore persists Credentials to a single JSON file, per spec §6. The
// engine does not otherwise persist state: this is the sole file the
// adapter writes.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

// NewTokenStore creates a TokenStore backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads Credentials from the store's file. A missing file returns
// zero-value Credentials and no error: the caller is expected to run its
// initial authentication flow and then Save the result.
func (s *TokenStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("brokerage: read token store: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("brokerage: decode token store: %w", err)
	}
	return creds, nil
}

// Save atomically overwrites the store's file with creds, encoded as
// indented JSON.
func (s *TokenStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("brokerage: encode token store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("brokerage: write token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("brokerage: commit token store: %w", err)
	}
	return nil
}
