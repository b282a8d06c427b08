package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var inspectJSON bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output in JSON format")
}

// resetInspectCommandState resets the inspect command's global state for testing.
func resetInspectCommandState() {
	inspectJSON = false
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [container|manifest]",
	Short: "Show a container's header without unlocking it",
	Long: `Shows what can be learned about a container without any key: its
format version, whether it needs a password or a private key, and the sizes
of its header fields. The original filename stays encrypted, except for
split containers whose manifest records it in the clear.

Examples:
  kete inspect 3f2a9c1e-....enc
  kete inspect backups/7d1e.../manifest.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

type inspectOutput struct {
	Path                 string `json:"path"`
	Chunked              bool   `json:"chunked"`
	Version              int    `json:"version"`
	Mode                 string `json:"mode"`
	WrappedKeyLen        int    `json:"wrapped_key_length,omitempty"`
	EncryptedFilenameLen int    `json:"encrypted_filename_length"`
	HeaderLen            int    `json:"header_length"`
	ContentSize          int64  `json:"content_size,omitempty"`
	OriginalFilename     string `json:"original_filename,omitempty"`
	TotalSize            int64  `json:"total_size,omitempty"`
	ChunkSize            int64  `json:"chunk_size,omitempty"`
	Chunks               int    `json:"chunks,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting inspect command")

	path := args[0]
	if utils.IsDir(path) {
		path = filepath.Join(path, container.ManifestName)
	}
	result, err := workflows.Inspect(path)
	if err != nil {
		return reportError(err)
	}

	if inspectJSON {
		data, err := json.MarshalIndent(inspectOutput{
			Path:                 result.Path,
			Chunked:              result.Chunked,
			Version:              int(result.Version),
			Mode:                 result.Mode.String(),
			WrappedKeyLen:        result.WrappedKeyLen,
			EncryptedFilenameLen: result.EncryptedFilenameLen,
			HeaderLen:            result.HeaderLen,
			ContentSize:          result.ContentSize,
			OriginalFilename:     result.OriginalFilename,
			TotalSize:            result.TotalSize,
			ChunkSize:            result.ChunkSize,
			Chunks:               result.Chunks,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result to JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(formatInspect(result))
	return nil
}

func formatInspect(r *workflows.InspectResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", ui.Path.Sprint(r.Path))
	fmt.Fprintf(&b, "  %-20s %d\n", "Format version:", r.Version)
	fmt.Fprintf(&b, "  %-20s %s\n", "Unlocked with:", ui.Highlight.Sprint(r.Mode))
	if r.Mode == container.WrapHybrid {
		fmt.Fprintf(&b, "  %-20s %d bytes (RSA-%d)\n", "Wrapped key:", r.WrappedKeyLen, r.WrappedKeyLen*8)
	}
	fmt.Fprintf(&b, "  %-20s %d bytes\n", "Encrypted filename:", r.EncryptedFilenameLen)
	fmt.Fprintf(&b, "  %-20s %d bytes\n", "Header:", r.HeaderLen)
	if r.Chunked {
		fmt.Fprintf(&b, "  %-20s %s\n", "Original filename:", r.OriginalFilename)
		fmt.Fprintf(&b, "  %-20s %s\n", "Total size:", ui.Bytes(r.TotalSize))
		fmt.Fprintf(&b, "  %-20s %d x %s\n", "Parts:", r.Chunks, ui.Bytes(r.ChunkSize))
	} else {
		fmt.Fprintf(&b, "  %-20s %s\n", "Encrypted content:", ui.Bytes(r.ContentSize))
	}
	b.WriteString(ui.Muted.Sprint("Header fields are not authenticated; a container is only trusted once it decrypts.") + "\n")
	return b.String()
}
