package utils

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// GetUsername returns the login name of the current user, falling back to
// $USER (or %USERNAME%) when the account database cannot be read.
func GetUsername() (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	for _, env := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(env); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot determine the current user")
}

// GetHostname returns the host name without its domain, as recorded in
// audit entries.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	short, _, _ := strings.Cut(hostname, ".")
	return short, nil
}
