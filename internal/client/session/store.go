// Package session owns the persisted client session: token pair, user
// profile and search history. All credential reads and writes in the client
// go through a single Store so refresh and logout are atomic with respect
// to concurrent readers.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	cryptohelper "eraiiz/internal/shared/crypto"
	"eraiiz/internal/shared/models"
)

const (
	sessionFile      = "session.json.enc"
	sessionAAD       = "eraiiz:session"
	maxSearchHistory = 5
)

// Data is the persisted session state.
type Data struct {
	AccessToken   string      `json:"accessToken"`
	RefreshToken  string      `json:"refreshToken"`
	User          models.User `json:"user"`
	SearchHistory []string    `json:"searchHistory,omitempty"`
}

// Store is a file backed session store, encrypted at rest with a locally
// generated key. The zero value is not usable; call Open.
type Store struct {
	mu   sync.RWMutex
	dir  string
	key  []byte
	data *Data
	exp  time.Time
}

// DefaultDir returns the session directory under the user's home.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".eraiiz")
}

// Open loads the session store rooted at dir, creating the directory and
// the at-rest key on first use. A missing or undecryptable session file
// yields an empty (logged out) store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	key, err := loadOrCreateKey(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, key: key}
	raw, err := os.ReadFile(s.path())
	if err != nil {
		return s, nil
	}
	plain, err := cryptohelper.Open(key, raw, []byte(sessionAAD))
	if err != nil {
		return s, nil
	}
	var d Data
	if err := json.Unmarshal(plain, &d); err != nil {
		return s, nil
	}
	s.data = &d
	s.exp = tokenExpiry(d.AccessToken)
	return s, nil
}

func (s *Store) path() string { return filepath.Join(s.dir, sessionFile) }

// tokenExpiry decodes the exp claim without verifying the signature; the
// server is the authority on validity, the client only schedules around it.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// SetSession replaces the whole session on login. Search history survives
// re-login on the same machine.
func (s *Store) SetSession(pair models.TokenPair, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []string
	if s.data != nil {
		history = s.data.SearchHistory
	}
	s.data = &Data{
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		User:          user,
		SearchHistory: history,
	}
	s.exp = tokenExpiry(pair.AccessToken)
	return s.persistLocked()
}

// UpdateTokens swaps the token pair after a refresh. The user profile is
// untouched. An empty refresh token in the pair keeps the current one.
func (s *Store) UpdateTokens(pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return errors.New("no active session")
	}
	s.data.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.data.RefreshToken = pair.RefreshToken
	}
	s.exp = tokenExpiry(pair.AccessToken)
	return s.persistLocked()
}

// SetRole records the role picked in the post-OAuth role selection flow.
func (s *Store) SetRole(role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return errors.New("no active session")
	}
	s.data.User.Role = role
	return s.persistLocked()
}

// Clear wipes the session from memory and disk. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.exp = time.Time{}
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil || s.data.AccessToken == "" {
		return "", false
	}
	return s.data.AccessToken, true
}

func (s *Store) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil || s.data.RefreshToken == "" {
		return "", false
	}
	return s.data.RefreshToken, true
}

func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return models.User{}, false
	}
	return s.data.User, true
}

// ExpiresAt reports the access token expiry decoded at set time.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil || s.exp.IsZero() {
		return time.Time{}, false
	}
	return s.exp, true
}

// SearchHistory returns the saved queries, most recent first.
func (s *Store) SearchHistory() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	out := make([]string, len(s.data.SearchHistory))
	copy(out, s.data.SearchHistory)
	return out
}

// RecordSearch prepends term to the history, de-duplicating and capping at
// five entries. Searching an existing term moves it to the front.
func (s *Store) RecordSearch(term string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if term == "" || s.data == nil {
		return nil
	}
	next := make([]string, 0, maxSearchHistory)
	next = append(next, term)
	for _, t := range s.data.SearchHistory {
		if t == term {
			continue
		}
		next = append(next, t)
		if len(next) == maxSearchHistory {
			break
		}
	}
	s.data.SearchHistory = next
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	plain, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	sealed, err := cryptohelper.Seal(s.key, plain, []byte(sessionAAD))
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), sealed, 0600)
}
