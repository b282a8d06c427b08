// Package configs manages user configuration and settings for Kete.
//
// Settings are derived from the environment at startup and held in
// UserKeteSettings:
//
//   - UserConfigsPath: $XDG_CONFIG_HOME/kete (config.toml)
//   - UserDataPath: $XDG_DATA_HOME/kete (keyring.enc, audit.jsonl)
//
// # User Configuration
//
// config.toml is optional. Every key has a default:
//
//	[user]
//	user_uuid = "..."             # generated on first use
//
//	[keyring]
//	path = "/path/to/keyring.enc" # KETE_KEYRING takes precedence
//
//	[encrypt]
//	default_chunk_size = "5MB"    # used by --split without a size
//	default_recipient = "alice"   # used when neither --password nor --recipient is given
//
//	[audit]
//	enabled = true
//
// Unknown keys are rejected when the file is loaded.
package configs
