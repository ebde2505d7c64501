// Package store persists credential records in a local JSON file.
//
// The store is the only shared mutable resource across concurrent tool
// invocations. Writes are atomic at the file level (write to a temp file
// in the same directory, then rename) so that a concurrent reader never
// observes a partially written store. No cross-process locking is
// attempted; the last writer wins.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mailtools/mailbridge/internal/provider"
)

// AuthMode selects how a session authenticates for an account.
type AuthMode string

const (
	// AuthPassword authenticates with a static password or app passcode.
	AuthPassword AuthMode = "password"

	// AuthOAuthBearer authenticates with an XOAUTH2 bearer token.
	AuthOAuthBearer AuthMode = "oauth"
)

// Record is one stored account credential.
//
// Invariants: exactly one record exists per address (compared
// case-insensitively); in oauth mode Secret stays empty and AccessToken
// must be set, while RefreshToken may be absent (expiry is then
// terminal).
type Record struct {
	Address     string   `json:"address"`
	DisplayName string   `json:"display_name,omitempty"`
	AuthMode    AuthMode `json:"auth_mode"`

	// Secret is the password or app passcode for password mode.
	Secret string `json:"secret,omitempty"`

	// OAuth token state, present only in oauth mode.
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`

	Server provider.ServerConfig `json:"server"`

	// Active is cleared after an irrecoverable refresh failure so that
	// lookups can report a needs-re-auth status instead of repeatedly
	// failing connections.
	Active bool `json:"active"`

	LastAuthenticatedAt time.Time `json:"last_authenticated_at,omitempty"`
}

// Matches reports whether the record answers to the given address or
// display name.
func (r Record) Matches(key string) bool {
	return strings.EqualFold(r.Address, key) ||
		(r.DisplayName != "" && strings.EqualFold(r.DisplayName, key))
}

// fileFormat is the on-disk shape of the store.
type fileFormat struct {
	DefaultAddress string   `json:"default_address,omitempty"`
	Accounts       []Record `json:"accounts"`
}

// Store is a file-backed credential record store.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the given file path. The file is created
// lazily on the first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) load() (*fileFormat, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileFormat{}, nil
		}
		return nil, fmt.Errorf("reading account store: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing account store %s: %w", s.path, err)
	}
	return &f, nil
}

// save writes the store atomically: temp file in the same directory,
// fsync-free rename. A reader either sees the old file or the new one.
func (s *Store) save(f *fileFormat) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding account store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting store permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing account store: %w", err)
	}
	return nil
}

// Get looks up a record by address or display name.
func (s *Store) Get(key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	for _, rec := range f.Accounts {
		if rec.Matches(key) {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

// GetDefault returns the process-wide default record, if one is set. If
// no default is designated but exactly one account exists, that account
// is returned.
func (s *Store) GetDefault() (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	if f.DefaultAddress != "" {
		for _, rec := range f.Accounts {
			if strings.EqualFold(rec.Address, f.DefaultAddress) {
				return rec, true, nil
			}
		}
	}
	if len(f.Accounts) == 1 {
		return f.Accounts[0], true, nil
	}
	return Record{}, false, nil
}

// Upsert inserts or replaces the record for its address. The first
// record ever inserted becomes the default.
func (s *Store) Upsert(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range f.Accounts {
		if strings.EqualFold(existing.Address, rec.Address) {
			f.Accounts[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		f.Accounts = append(f.Accounts, rec)
	}
	if f.DefaultAddress == "" {
		f.DefaultAddress = rec.Address
	}
	return s.save(f)
}

// ListAll returns every stored record.
func (s *Store) ListAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Accounts, nil
}

// Remove deletes the record for the given address. Removing the default
// account clears the default designation.
func (s *Store) Remove(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	kept := f.Accounts[:0]
	removed := false
	for _, rec := range f.Accounts {
		if strings.EqualFold(rec.Address, address) {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return fmt.Errorf("no account %q in store", address)
	}
	f.Accounts = kept
	if strings.EqualFold(f.DefaultAddress, address) {
		f.DefaultAddress = ""
	}
	return s.save(f)
}

// SetDefault designates the default account for operations that do not
// name one.
func (s *Store) SetDefault(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	for _, rec := range f.Accounts {
		if strings.EqualFold(rec.Address, address) {
			f.DefaultAddress = rec.Address
			return s.save(f)
		}
	}
	return fmt.Errorf("no account %q in store", address)
}

// DefaultAddress returns the currently designated default address, or "".
func (s *Store) DefaultAddress() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", err
	}
	return f.DefaultAddress, nil
}

// Validate reports whether a record exists for the key and is active.
func (s *Store) Validate(key string) (bool, error) {
	rec, ok, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return ok && rec.Active, nil
}
