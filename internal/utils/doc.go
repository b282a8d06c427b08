// Package utils provides shared helpers for the Kete command line.
//
// # Filesystem Utilities
//
//   - FileExists, IsDir: existence checks
//   - AvailablePath: picks a free "name (n).ext" instead of overwriting
//   - FormatPaths: formats file paths for human-readable output
//
// # System Utilities
//
//   - GetUsername, GetHostname: identify the machine in the audit log
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input
//   - ReadSecretLine: reads a password piped with --password-stdin
//
// # Terminal Utilities
//
// Secrets are read without echo, from stdin when it is a terminal and from
// /dev/tty otherwise, so that data can still be piped in:
//   - ReadSecret, ReadNewSecret, ReadPassphrase, ReadPassphraseFromTTY
//   - PromptChoice: numbered selection, used to pick a key pair
package utils
