package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

const (
	keyringService = "mailhook"
	keyringKey     = "outlook_token"
)

// Cache persists the OAuth token between runs. Load returns nil, nil when
// nothing has been stored yet.
type Cache interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// NewCache opens the cache for backend ("file" or "keyring"). The keyring's
// file fallback lives next to path.
func NewCache(backend, path string) (Cache, error) {
	switch backend {
	case "", "file":
		return NewFileCache(path), nil
	case "keyring":
		return NewKeyringCache(filepath.Dir(path))
	default:
		return nil, fmt.Errorf("unknown token cache backend %q", backend)
	}
}

// FileCache stores the token as JSON on disk
type FileCache struct {
	path string
}

// NewFileCache creates a file backed token cache
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}
	return decodeToken(data)
}

func (c *FileCache) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace token cache: %w", err)
	}
	return nil
}

// KeyringCache stores the token in the system keyring, falling back to an
// encrypted file under dir when no keyring service is available
type KeyringCache struct {
	ring keyring.Keyring
}

// NewKeyringCache opens the keyring
func NewKeyringCache(dir string) (*KeyringCache, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(keyringService + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &KeyringCache{ring: ring}, nil
}

func (c *KeyringCache) Load() (*oauth2.Token, error) {
	item, err := c.ring.Get(keyringKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", keyringKey, err)
	}
	return decodeToken(item.Data)
}

func (c *KeyringCache) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	err = c.ring.Set(keyring.Item{
		Key:   keyringKey,
		Data:  data,
		Label: "mailhook Outlook token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", keyringKey, err)
	}
	return nil
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode cached token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, nil
	}
	return &tok, nil
}
