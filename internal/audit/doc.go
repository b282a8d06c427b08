// Package audit provides audit trail logging for Kete operations.
//
// Every encrypt, decrypt, verify and key management operation is recorded
// in a per-user log so that a user can see what was done on this machine
// and when.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_DATA_HOME/kete/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Username, user UUID and host
//   - Operation name and job ID
//   - Operation-specific details (mode, recipient, input and output paths)
//
// Passwords, passphrases, keys and filenames recovered from password-mode
// containers are never logged.
//
// # Usage
//
//	entry := audit.LogWithUser("encrypt")
//	entry.Outputs = written
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Set [audit] enabled = false
// in config.toml to turn it off.
package audit
