package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/kete/internal/audit"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logSince     string
	logUntil     string
	logFailed    bool
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logFailed, "failed", false, "show only failed operations")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logOperation = ""
	logSince = ""
	logUntil = ""
	logFailed = false
	logOneline = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the local audit log of kete operations.

Entries record what was done to which files, never passwords, keys or
recovered filenames. Use filters to narrow down the results.

Examples:
  kete log                              # View full log
  kete log -n 10                        # Last 10 entries
  kete log --reverse                    # Most recent first
  kete log --operation encrypt,decrypt  # Filter by operation
  kete log --since 2024-01-01           # Filter by date
  kete log --failed                     # Only failures
  kete log --json                       # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	result, err := workflows.Log(workflows.LogOptions{
		Limit:      logLimit,
		Reverse:    logReverse,
		Operations: logOperation,
		Since:      logSince,
		Until:      logUntil,
		FailedOnly: logFailed,
	})
	if err != nil {
		if errors.Is(err, kerrors.ErrInvalidDateFormat) {
			fmt.Println(ui.Error.Sprint("✗") + " " + err.Error())
			return errReported
		}
		return reportError(err)
	}

	Logger.Debugf("Parsed %d entries from audit log", result.Total)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	if len(result.Entries) == 0 {
		switch {
		case !audit.Enabled():
			fmt.Println(ui.Info.Sprint("ℹ") + " Audit logging is disabled. Enable it with " +
				ui.Code.Sprint("kete config set audit.enabled true"))
		case result.Total == 0:
			fmt.Println("No audit log entries found.")
		default:
			fmt.Println("No audit log entries found matching the filters.")
		}
		return nil
	}

	if logJSON {
		data, err := json.MarshalIndent(result.Entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries to JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	for _, e := range result.Entries {
		if logOneline {
			fmt.Printf("%s %s %s %s\n", formatDate(e.Timestamp), e.User, e.Operation, formatDetailsOneline(e))
			continue
		}
		fmt.Printf("%-19s  %-12s  %-18s  %s\n", formatDateTime(e.Timestamp), e.User, e.Operation, formatDetails(e))
	}
	return nil
}

func parseTimestamp(ts string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	return t, err == nil
}

func formatDate(ts string) string {
	if t, ok := parseTimestamp(ts); ok {
		return t.Local().Format("2006-01-02")
	}
	return ts
}

func formatDateTime(ts string) string {
	if t, ok := parseTimestamp(ts); ok {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	return ts
}

// formatDetails renders the operation-specific fields of an entry.
func formatDetails(e audit.Entry) string {
	var parts []string
	if e.Mode != "" {
		parts = append(parts, e.Mode)
	}
	if e.Recipient != "" {
		parts = append(parts, "for "+e.Recipient)
	}
	if e.KeyName != "" {
		parts = append(parts, e.KeyName)
	}
	if len(e.Inputs) > 0 {
		parts = append(parts, strings.Join(e.Inputs, ", "))
	}
	if len(e.Outputs) > 0 {
		parts = append(parts, "-> "+strings.Join(e.Outputs, ", "))
	}
	if e.Chunks > 0 {
		parts = append(parts, fmt.Sprintf("%d parts", e.Chunks))
	}
	if e.Bytes > 0 {
		parts = append(parts, ui.Bytes(e.Bytes))
	}
	if e.Error != "" {
		parts = append(parts, ui.Error.Sprint("failed: "+e.Error))
	}
	return strings.Join(parts, "  ")
}

// formatDetailsOneline is formatDetails without the output paths.
func formatDetailsOneline(e audit.Entry) string {
	switch {
	case e.Error != "":
		return "failed"
	case len(e.Inputs) == 1:
		return e.Inputs[0]
	case len(e.Inputs) > 1:
		return fmt.Sprintf("%d files", len(e.Inputs))
	case e.KeyName != "":
		return e.KeyName
	}
	return e.Mode
}
