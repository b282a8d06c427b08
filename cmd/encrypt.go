package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kete/internal/configs"
	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

// splitDefault is the --split value used when the flag is given without a size.
const splitDefault = "default"

var (
	encryptPasswordStdin bool
	encryptUsePassword   bool
	encryptRecipient     string
	encryptSplit         string
	encryptOutput        string
)

func init() {
	encryptCmd.Flags().BoolVar(&encryptPasswordStdin, "password-stdin", false, "read the password from the first line of stdin")
	encryptCmd.Flags().BoolVarP(&encryptUsePassword, "password", "p", false, "use a password even if a default recipient is configured")
	encryptCmd.Flags().StringVarP(&encryptRecipient, "recipient", "r", "", "encrypt for this keyring key pair or contact")
	encryptCmd.Flags().StringVar(&encryptSplit, "split", "", "split into parts of SIZE (--split=100MiB); bare --split uses the configured default")
	encryptCmd.Flags().Lookup("split").NoOptDefVal = splitDefault
	encryptCmd.Flags().StringVarP(&encryptOutput, "out", "o", "", "output file, or directory for several inputs and split output")
}

// resetEncryptCommandState resets the encrypt command's global state for testing.
func resetEncryptCommandState() {
	encryptPasswordStdin = false
	encryptUsePassword = false
	encryptRecipient = ""
	encryptSplit = ""
	encryptOutput = ""
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [files...]",
	Short: "Encrypt files into containers",
	Long: `Encrypts each file into its own container.

Files can be given as paths, directories or glob patterns (including **).
Hidden directories and files that are already containers are skipped.

With a password the container can be opened by anyone who knows it. With
--recipient it is sealed for that key pair or contact's public key and can
only be opened with the matching private key.

The container is named with a random UUID so the original filename is not
revealed; the filename is stored encrypted inside and restored on decrypt.

Examples:
  kete encrypt report.pdf
  kete encrypt -r alice "docs/**/*.pdf"
  kete encrypt --split=100MiB -o backups/ disk.img
  echo "$PW" | kete encrypt --password-stdin notes.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncrypt,
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting encrypt command")
	Logger.Debugf("Patterns: %v, recipient=%q, split=%q, out=%q", args, encryptRecipient, encryptSplit, encryptOutput)

	inputs, err := workflows.ResolveInputs(args)
	if err != nil {
		return reportError(err)
	}
	Logger.Debugf("Resolved %d input files", len(inputs))
	if len(inputs) > 20 {
		Logger.Warnf("Processing %d files - this may take a moment", len(inputs))
	}

	cfg, err := configs.EnsureUserConfig()
	if err != nil {
		return reportError(fmt.Errorf("failed to load user config: %w", err))
	}

	opts := workflows.EncryptOptions{
		Inputs: inputs,
		Output: encryptOutput,
	}

	if encryptSplit != "" {
		if opts.ChunkSize, err = splitSize(cfg, encryptSplit); err != nil {
			return reportError(err)
		}
		Logger.Infof("Splitting into parts of %s", ui.Bytes(opts.ChunkSize))
	}

	recipient := encryptRecipient
	if recipient == "" && !encryptUsePassword && !encryptPasswordStdin {
		recipient = cfg.Encrypt.DefaultRecipient
	}
	if recipient != "" && (encryptUsePassword || encryptPasswordStdin) {
		return reportError(fmt.Errorf("use either a password or a recipient, not both"))
	}

	if recipient != "" {
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		pem, err := ring.PublicKeyPEMFor(recipient)
		if err != nil {
			return reportError(fmt.Errorf("recipient %q: %w", recipient, err))
		}
		opts.RecipientKey = []byte(pem)
		opts.Recipient = recipient
		Logger.Infof("Encrypting for %s", recipient)
	} else {
		if opts.Password, err = readPassword(encryptPasswordStdin, true); err != nil {
			return reportError(err)
		}
		Logger.Infof("Encrypting with a password")
	}

	var result *workflows.EncryptResult
	_, err = runJob("Encrypting...", func(ctx context.Context, progress container.ProgressFunc) (workflows.Done, error) {
		var err error
		result, err = workflows.Encrypt(ctx, opts, progress)
		return workflows.Done{}, err
	})
	if err != nil {
		if result != nil && len(result.Orphans) > 0 {
			printResult(ui.Warning.Sprint("⚠") + " Parts left without a manifest (safe to delete):" + utils.FormatPaths(result.Orphans))
		}
		return reportError(err)
	}

	Logger.Infof("Encrypt command completed successfully. Created %d containers", len(result.Outputs))
	msg := ui.Success.Sprint("✓") + fmt.Sprintf(" Encrypted %d %s (%s, %s)",
		len(inputs), utils.Plural(len(inputs), "file"), result.Mode, ui.Bytes(result.Bytes))
	if result.Chunks > 0 {
		msg += fmt.Sprintf(" into %d %s", result.Chunks, utils.Plural(result.Chunks, "part"))
	}
	msg += "\nThe following files were created:" + utils.FormatPaths(result.Outputs)
	if result.Chunks > 0 {
		msg += ui.Info.Sprint("→") + " Check the parts any time with " + ui.Code.Sprint("kete verify <manifest>")
	} else {
		msg += ui.Info.Sprint("→") + " Decrypt with " + ui.Code.Sprint("kete decrypt <file>")
	}
	printResult(msg)
	return nil
}

// splitSize turns the --split value into a chunk size.
func splitSize(cfg *configs.UserConfig, value string) (int64, error) {
	if value == splitDefault {
		return cfg.ChunkSize()
	}
	return configs.ParseSize(value)
}
