package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"

	"github.com/watson-developer-cloud/go-sdk/internal/sdk"
)

const (
	keyringService = "watson"

	// TokensFileName is the plaintext fallback used without a keyring.
	TokensFileName = "tokens.json"

	// lockTimeout bounds how long file operations wait for the lock
	// before proceeding unlocked.
	lockTimeout = 100 * time.Millisecond
)

// ErrTokenNotFound is returned by Store.Load when nothing is stored.
var ErrTokenNotFound = errors.New("token not found")

// Store persists IAM tokens, preferring the system keyring and falling back
// to a locked JSON file.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

var _ sdk.TokenStore = (*Store)(nil)

// NewStore creates a token store. When disableKeyring is set, or the keyring
// cannot be written, tokens go to fallbackDir/tokens.json.
func NewStore(fallbackDir string, disableKeyring bool, logger *slog.Logger) *Store {
	if disableKeyring {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	testKey := "watson::availability-check"
	if err := keyring.Set(keyringService, testKey, "check"); err == nil {
		_ = keyring.Delete(keyringService, testKey)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	if logger != nil {
		logger.Warn("system keyring unavailable, tokens stored in plaintext",
			"path", filepath.Join(fallbackDir, TokensFileName))
	}
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// storeKey derives the persistence key from the IAM endpoint and a
// fingerprint of the API key. The key itself is never stored.
func storeKey(iamURL, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("watson::%s::%s", iamURL, hex.EncodeToString(sum[:8]))
}

// Load retrieves the token stored under key.
func (s *Store) Load(key string) (*sdk.StoredToken, error) {
	if s.useKeyring {
		data, err := keyring.Get(keyringService, key)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, &sdk.StoreError{Operation: "load", Key: key, Cause: ErrTokenNotFound}
			}
			return nil, &sdk.StoreError{Operation: "load", Key: key, Cause: err}
		}
		var tok sdk.StoredToken
		if err := json.Unmarshal([]byte(data), &tok); err != nil {
			return nil, &sdk.StoreError{Operation: "load", Key: key, Message: "invalid token data", Cause: err}
		}
		return &tok, nil
	}

	var tok *sdk.StoredToken
	err := s.withLock(func() error {
		all, err := s.loadAll()
		if err != nil {
			return err
		}
		tok = all[key]
		return nil
	})
	if err != nil {
		return nil, &sdk.StoreError{Operation: "load", Key: key, Cause: err}
	}
	if tok == nil {
		return nil, &sdk.StoreError{Operation: "load", Key: key, Cause: ErrTokenNotFound}
	}
	return tok, nil
}

// Save stores tok under key.
func (s *Store) Save(key string, tok *sdk.StoredToken) error {
	if s.useKeyring {
		data, err := json.Marshal(tok)
		if err != nil {
			return &sdk.StoreError{Operation: "save", Key: key, Cause: err}
		}
		if err := keyring.Set(keyringService, key, string(data)); err != nil {
			return &sdk.StoreError{Operation: "save", Key: key, Cause: err}
		}
		return nil
	}

	err := s.withLock(func() error {
		all, err := s.loadAll()
		if err != nil {
			return err
		}
		all[key] = tok
		return s.saveAll(all)
	})
	if err != nil {
		return &sdk.StoreError{Operation: "save", Key: key, Cause: err}
	}
	return nil
}

// Delete removes the token stored under key. Deleting a missing key is not
// an error.
func (s *Store) Delete(key string) error {
	if s.useKeyring {
		if err := keyring.Delete(keyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return &sdk.StoreError{Operation: "delete", Key: key, Cause: err}
		}
		return nil
	}

	err := s.withLock(func() error {
		all, err := s.loadAll()
		if err != nil {
			return err
		}
		if _, ok := all[key]; !ok {
			return nil
		}
		delete(all, key)
		return s.saveAll(all)
	})
	if err != nil {
		return &sdk.StoreError{Operation: "delete", Key: key, Cause: err}
	}
	return nil
}

// UsingKeyring reports whether the store uses the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// Path returns the fallback file path.
func (s *Store) Path() string {
	return filepath.Join(s.fallbackDir, TokensFileName)
}

// withLock runs fn holding an exclusive lock on the tokens file. If the lock
// is not acquired within lockTimeout, fn runs unlocked.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	fl := flock.New(filepath.Join(s.fallbackDir, ".tokens.lock"))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if locked {
		defer func() { _ = fl.Unlock() }()
	}
	return fn()
}

func (s *Store) loadAll() (map[string]*sdk.StoredToken, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*sdk.StoredToken), nil
		}
		return nil, err
	}

	var all map[string]*sdk.StoredToken
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string]*sdk.StoredToken)
	}
	return all, nil
}

func (s *Store) saveAll(all map[string]*sdk.StoredToken) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.fallbackDir, "tokens-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	dest := s.Path()
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return os.Rename(tmpPath, dest)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
