package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"

	cryptohelper "eraiiz/internal/shared/crypto"
)

const keyFile = "key"

// loadOrCreateKey reads the at-rest key for the session file, generating
// and storing a fresh one on first run.
func loadOrCreateKey(dir string) ([]byte, error) {
	path := filepath.Join(dir, keyFile)
	if b, err := os.ReadFile(path); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(b))
		if err != nil {
			return nil, err
		}
		if len(key) != cryptohelper.KeyLength {
			return nil, errors.New("invalid session key length")
		}
		return key, nil
	}
	key := make([]byte, cryptohelper.KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	b64 := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(b64), 0600); err != nil {
		return nil, err
	}
	return key, nil
}
