package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/kete/internal/utils"
)

const (
	// KeyringEnv overrides the keyring location when set.
	KeyringEnv = "KETE_KEYRING"

	// MasterPasswordEnv supplies the keyring master password for
	// non-interactive use.
	MasterPasswordEnv = "KETE_MASTER_PASSWORD"
)

type UserSettings struct {
	UserConfigsPath string
	UserDataPath    string
	Username        string
}

var UserKeteSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")

	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	UserKeteSettings = &UserSettings{
		UserConfigsPath: filepath.Join(configDir, "kete"),
		UserDataPath:    filepath.Join(dataDir, "kete"),
		Username:        username,
	}
}

// ConfigPath is the location of the user's config.toml.
func (s *UserSettings) ConfigPath() string {
	return filepath.Join(s.UserConfigsPath, "config.toml")
}

// DefaultKeyringPath is where the keyring lives unless configured otherwise.
func (s *UserSettings) DefaultKeyringPath() string {
	return filepath.Join(s.UserDataPath, "keyring.enc")
}

// AuditLogPath is the location of the operation log.
func (s *UserSettings) AuditLogPath() string {
	return filepath.Join(s.UserDataPath, "audit.jsonl")
}
