package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andy/tally/internal/logger"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Invoice numbering and terms
	Invoice InvoiceConfig `yaml:"invoice"`

	// Statement and payment behaviour
	Ledger LedgerConfig `yaml:"ledger"`

	Log logger.LogConfig `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"` // Path to SQLCipher database
}

type InvoiceConfig struct {
	NumberPrefix   string `yaml:"number_prefix" validate:"required,alphanum,max=10"` // e.g. "INV" -> INV-2024-0001
	DefaultDueDays int    `yaml:"default_due_days" validate:"gte=0,lte=365"`       // Days until invoice due
}

type LedgerConfig struct {
	MalformedPolicy  string `yaml:"malformed_policy" validate:"oneof=skip abort"` // What statements do with unreadable records
	MaxApplyAttempts int    `yaml:"max_apply_attempts" validate:"gte=1,lte=20"`   // Retries when a payment races another writer
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "tally")
}

// DefaultConfigPath returns ~/.config/tally/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "tally.db"),
		},
		Invoice: InvoiceConfig{
			NumberPrefix:   "INV",
			DefaultDueDays: 30,
		},
		Ledger: LedgerConfig{
			MalformedPolicy:  "skip",
			MaxApplyAttempts: 3,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Validate checks field constraints
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// EnsureDirectories creates the database directory
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0700)
}
