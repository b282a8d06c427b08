package workflows

import (
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/kete/internal/audit"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Operations filters entries by operation (comma-separated).
	Operations string

	// Since and Until filter by date, YYYY-MM-DD, inclusive.
	Since string
	Until string

	// FailedOnly keeps entries that recorded an error.
	FailedOnly bool
}

// LogResult contains the filtered audit log.
type LogResult struct {
	Entries []audit.Entry

	// Total is the number of entries before filtering.
	Total int
}

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Log reads and filters the audit log. A missing log is an empty result.
//
// Returns ErrInvalidDateFormat if Since or Until is not YYYY-MM-DD.
func Log(opts LogOptions) (*LogResult, error) {
	var since, until time.Time
	if opts.Since != "" {
		t, err := time.Parse("2006-01-02", opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since must be YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		since = t
	}
	if opts.Until != "" {
		t, err := time.Parse("2006-01-02", opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until must be YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		until = t.Add(24*time.Hour - time.Nanosecond)
	}

	entries, err := audit.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	result := &LogResult{Total: len(entries)}

	ops := make(map[string]bool)
	if opts.Operations != "" {
		for _, op := range strings.Split(opts.Operations, ",") {
			ops[strings.ToLower(strings.TrimSpace(op))] = true
		}
	}

	var filtered []audit.Entry
	for _, e := range entries {
		if len(ops) > 0 && !ops[strings.ToLower(e.Operation)] {
			continue
		}
		if opts.FailedOnly && e.Error == "" {
			continue
		}
		if !since.IsZero() || !until.IsZero() {
			t, err := time.Parse(timestampLayout, e.Timestamp)
			if err != nil {
				continue
			}
			if !since.IsZero() && t.Before(since) {
				continue
			}
			if !until.IsZero() && t.After(until) {
				continue
			}
		}
		filtered = append(filtered, e)
	}

	// The limit always keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}
	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	result.Entries = filtered
	return result, nil
}
