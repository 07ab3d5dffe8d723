package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Keyring provides secure key storage abstraction
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
	IsAvailable() bool
}

const (
	ServiceName = "tally"
	KeyName     = "db-encryption-key"

	// EnvKey overrides the system keyring when set
	EnvKey = "TALLY_DB_KEY"
)

// ErrKeyNotFound is returned when no encryption key has been stored yet
var ErrKeyNotFound = errors.New("encryption key not found")

// NewKeyring returns a keyring that reads TALLY_DB_KEY first and falls back
// to the OS secret store (macOS Keychain, Secret Service, Windows Credential
// Manager).
func NewKeyring() Keyring {
	return &chainKeyring{env: envKeyring{}, system: systemKeyring{}}
}

type chainKeyring struct {
	env    envKeyring
	system systemKeyring
}

func (k *chainKeyring) GetKey() (string, error) {
	if key, err := k.env.GetKey(); err == nil {
		return key, nil
	}
	return k.system.GetKey()
}

func (k *chainKeyring) SetKey(password string) error {
	if k.env.IsAvailable() {
		return fmt.Errorf("%s is set; unset it to store a key in the system keyring", EnvKey)
	}
	return k.system.SetKey(password)
}

func (k *chainKeyring) DeleteKey() error {
	return k.system.DeleteKey()
}

func (k *chainKeyring) IsAvailable() bool {
	return k.env.IsAvailable() || k.system.IsAvailable()
}

type envKeyring struct{}

func (envKeyring) GetKey() (string, error) {
	key := os.Getenv(EnvKey)
	if key == "" {
		return "", fmt.Errorf("%w: %s not set", ErrKeyNotFound, EnvKey)
	}
	return key, nil
}

func (envKeyring) IsAvailable() bool {
	return os.Getenv(EnvKey) != ""
}

type systemKeyring struct{}

// GetKey retrieves the encryption key from the OS secret store
func (systemKeyring) GetKey() (string, error) {
	key, err := keyring.Get(ServiceName, KeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w in system keyring", ErrKeyNotFound)
		}
		return "", fmt.Errorf("failed to retrieve key from keyring: %w", err)
	}

	if key == "" {
		return "", errors.New("encryption key is empty")
	}

	return key, nil
}

// SetKey stores the encryption key in the OS secret store
func (systemKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := keyring.Set(ServiceName, KeyName, password); err != nil {
		return fmt.Errorf("failed to store key in keyring: %w", err)
	}

	return nil
}

// DeleteKey removes the encryption key from the OS secret store
func (systemKeyring) DeleteKey() error {
	err := keyring.Delete(ServiceName, KeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w in system keyring", ErrKeyNotFound)
		}
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}

	return nil
}

// IsAvailable probes the secret store with a throwaway entry
func (systemKeyring) IsAvailable() bool {
	testKey := "__tally_availability_test__"
	if err := keyring.Set(ServiceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, testKey)
	return true
}
