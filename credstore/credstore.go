// Package credstore persists the auth token between runs. The token is a
// credential, not session state: sessions and lobby facts stay in memory
// and die with the process, but making the player log in on every launch
// would be pointless.
package credstore

import (
	"os"
	"path/filepath"
	"strings"
)

// Store is a file-backed token store.
type Store struct {
	path string
}

// New creates a store at the given path. The file is created lazily on the
// first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored token, or empty if none has been saved.
// A missing or unreadable file is not an error, it just means no token.
func (s *Store) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Save writes the token. Write to a temp file then rename, atomic on most
// systems, so a crash mid-write can't leave a corrupt token behind. Mode
// 0600 because this is a credential.
func (s *Store) Save(token string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear deletes the stored token. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
