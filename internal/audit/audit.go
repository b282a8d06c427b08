package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/kete/internal/configs"
	"github.com/PolarWolf314/kete/internal/utils"
)

// Entry represents a single audit log entry. Entries never carry key
// material or recovered filenames of password-mode containers.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // Local username.
	UserUUID  string `json:"uuid"` // UUID from the user config.
	Host      string `json:"host,omitempty"`
	Operation string `json:"op"`
	JobID     string `json:"job,omitempty"`

	// Optional fields depending on operation.
	Mode      string   `json:"mode,omitempty"`      // "password" or "key pair".
	Recipient string   `json:"recipient,omitempty"` // For hybrid encrypt.
	KeyName   string   `json:"key,omitempty"`       // For key management and hybrid decrypt.
	Inputs    []string `json:"inputs,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
	Chunks    int      `json:"chunks,omitempty"` // For split encrypt and reassembly.
	Bytes     int64    `json:"bytes,omitempty"`
	Error     string   `json:"error,omitempty"` // Set when the operation failed.
}

// Log appends an entry to the audit log.
// If logging fails it is silently skipped; operations should not fail just
// because audit logging failed.
func Log(entry Entry) {
	if !Enabled() {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// Enabled reports whether [audit] enabled is set. A config that cannot be
// read counts as enabled.
func Enabled() bool {
	userConfig, err := configs.LoadUserConfig()
	if err != nil {
		return true
	}
	return userConfig.Audit.Enabled
}

// LogWithUser is a convenience function that populates user fields.
func LogWithUser(op string) Entry {
	entry := Entry{
		Operation: op,
		User:      configs.UserKeteSettings.Username,
	}
	if host, err := utils.GetHostname(); err == nil {
		entry.Host = host
	}

	userConfig, err := configs.LoadUserConfig()
	if err != nil {
		return entry
	}
	entry.UserUUID = userConfig.User.UUID

	return entry
}

// LogPath returns the path to the audit log file.
func LogPath() string {
	return configs.UserKeteSettings.AuditLogPath()
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	data, err := os.ReadFile(LogPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
