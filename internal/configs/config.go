package configs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultChunkSize is used by split encryption when neither the command
// line nor the config file gives one.
const DefaultChunkSize = "5MB"

type UserConfig struct {
	User    User          `toml:"user"`
	Keyring KeyringConfig `toml:"keyring"`
	Encrypt EncryptConfig `toml:"encrypt"`
	Audit   AuditConfig   `toml:"audit"`
}

type User struct {
	UUID string `toml:"user_uuid"`
}

type KeyringConfig struct {
	// Path overrides the default keyring location.
	Path string `toml:"path,omitempty"`
}

type EncryptConfig struct {
	// DefaultChunkSize is a human readable size such as "5MB" or "512KiB".
	DefaultChunkSize string `toml:"default_chunk_size,omitempty"`

	// DefaultRecipient is used by encrypt when no password or recipient is given.
	DefaultRecipient string `toml:"default_recipient,omitempty"`
}

type AuditConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewUserConfig returns the settings used before a config file exists.
func NewUserConfig() *UserConfig {
	return &UserConfig{
		Audit: AuditConfig{Enabled: true},
	}
}

// LoadUserConfig loads the user configuration from the config file.
func LoadUserConfig() (*UserConfig, error) {
	configPath := UserKeteSettings.ConfigPath()

	config := NewUserConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	if err := SaveTOML(UserKeteSettings.ConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	return nil
}

// GenerateUserUUID generates a new UUID for the user.
func GenerateUserUUID() string {
	return uuid.New().String()
}

// EnsureUserConfig ensures the user configuration exists and has a UUID.
func EnsureUserConfig() (*UserConfig, error) {
	config, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}

	if config.User.UUID == "" {
		config.User.UUID = GenerateUserUUID()
		if err := SaveUserConfig(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// KeyringPath resolves the keyring location: the KETE_KEYRING environment
// variable, then [keyring] path, then the default under the data directory.
func (c *UserConfig) KeyringPath() string {
	if p := os.Getenv(KeyringEnv); p != "" {
		return p
	}
	if c != nil && c.Keyring.Path != "" {
		return c.Keyring.Path
	}
	return UserKeteSettings.DefaultKeyringPath()
}

// ChunkSize returns [encrypt] default_chunk_size in bytes.
func (c *UserConfig) ChunkSize() (int64, error) {
	value := DefaultChunkSize
	if c != nil && c.Encrypt.DefaultChunkSize != "" {
		value = c.Encrypt.DefaultChunkSize
	}
	return ParseSize(value)
}

// ParseSize parses a human readable byte size such as "5MB", "512KiB" or
// "1048576". Sizes must be positive.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("invalid size %q: must be between 1 byte and 4 EiB", s)
	}
	return int64(n), nil
}

// Keys lists the settings Set and Get understand, in display order.
var Keys = []string{
	"keyring.path",
	"encrypt.default_chunk_size",
	"encrypt.default_recipient",
	"audit.enabled",
}

// Get returns the value of a setting by its dotted key.
func (c *UserConfig) Get(key string) (string, error) {
	switch key {
	case "keyring.path":
		return c.Keyring.Path, nil
	case "encrypt.default_chunk_size":
		return c.Encrypt.DefaultChunkSize, nil
	case "encrypt.default_recipient":
		return c.Encrypt.DefaultRecipient, nil
	case "audit.enabled":
		return strconv.FormatBool(c.Audit.Enabled), nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// Set changes a setting by its dotted key, validating the value. An empty
// value resets string settings to their default.
func (c *UserConfig) Set(key, value string) error {
	switch key {
	case "keyring.path":
		c.Keyring.Path = value
	case "encrypt.default_chunk_size":
		if value != "" {
			if _, err := ParseSize(value); err != nil {
				return err
			}
		}
		c.Encrypt.DefaultChunkSize = value
	case "encrypt.default_recipient":
		c.Encrypt.DefaultRecipient = value
	case "audit.enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("audit.enabled must be true or false, got %q", value)
		}
		c.Audit.Enabled = enabled
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
