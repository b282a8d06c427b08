package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [manifest|dir...]",
	Short: "Check the parts of split containers without decrypting",
	Long: `Checks every part listed in a split container's manifest against its
recorded SHA-256. No password or key is needed.

A directory argument means the manifest.json inside it.

Examples:
  kete verify backups/7d1e.../manifest.json
  kete verify backups/7d1e...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting verify command")

	var results []string
	for _, arg := range args {
		path := arg
		if utils.IsDir(path) {
			path = filepath.Join(path, container.ManifestName)
		}
		Logger.Debugf("Verifying %s", path)

		s, cleanup := startSpinner("Verifying "+path+"...", verbose)
		result, err := workflows.Verify(context.Background(), path)
		if err != nil {
			s.FinalMSG = formatError(err)
			cleanup()
			return errReported
		}
		cleanup()

		results = append(results, fmt.Sprintf("%s: %d %s, %s of %s",
			ui.Path.Sprint(path), result.Chunks, utils.Plural(result.Chunks, "part"),
			ui.Bytes(result.TotalSize), ui.Highlight.Sprint(result.OriginalFilename)))
	}

	msg := ui.Success.Sprint("✓") + " All parts intact"
	for _, r := range results {
		msg += "\n    - " + r
	}
	printResult(msg)
	return nil
}
