package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	decryptOutput        string
	decryptKey           string
	decryptPasswordStdin bool
	decryptForce         bool
)

func init() {
	decryptCmd.Flags().StringVarP(&decryptOutput, "out", "o", "", "output file, or directory to restore the original filename in")
	decryptCmd.Flags().StringVarP(&decryptKey, "key", "k", "", "keyring key pair to decrypt with")
	decryptCmd.Flags().BoolVar(&decryptPasswordStdin, "password-stdin", false, "read the password from the first line of stdin")
	decryptCmd.Flags().BoolVar(&decryptForce, "force", false, "overwrite an existing --out file")
}

// resetDecryptCommandState resets the decrypt command's global state for testing.
func resetDecryptCommandState() {
	decryptOutput = ""
	decryptKey = ""
	decryptPasswordStdin = false
	decryptForce = false
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [containers...]",
	Short: "Decrypt containers and split container manifests",
	Long: `Decrypts containers back to their original files.

The original filename is recovered from the container and used for the
output unless --out is given; an existing file is never overwritten unless
--out names it and --force is set.

For a split container pass its manifest.json. Every part is checked
before any plaintext is written.

Password containers ask for the password; key pair containers unlock the
keyring and use --key, the only key pair, or the one you pick.

Examples:
  kete decrypt 3f2a9c1e-....enc
  kete decrypt -k laptop backups/7d1e.../manifest.json
  kete decrypt -o report.pdf --force 3f2a9c1e-....enc`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecrypt,
}

// decryptKeys fetches key material at most once per command, however many
// containers need it.
type decryptKeys struct {
	password string
	ring     *keyring.Keyring
}

func (k *decryptKeys) resolver(mode container.WrapType) (container.KeyResolver, error) {
	if mode == container.WrapSymmetric {
		if k.password == "" {
			pw, err := readPassword(decryptPasswordStdin, false)
			if err != nil {
				return nil, err
			}
			k.password = pw
		}
		return container.StaticResolver{Password: k.password}, nil
	}

	if k.ring == nil {
		ring, err := openKeyring()
		if err != nil {
			return nil, err
		}
		k.ring = ring
	}
	return keyResolver(k.ring, decryptKey), nil
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting decrypt command")
	Logger.Debugf("Patterns: %v, key=%q, out=%q, force=%t", args, decryptKey, decryptOutput, decryptForce)

	inputs, err := workflows.ResolveContainers(args)
	if err != nil {
		return reportError(err)
	}
	if len(inputs) > 1 && decryptOutput != "" && !utils.IsDir(decryptOutput) {
		return reportError(fmt.Errorf("--out must be a directory when decrypting several containers"))
	}

	keys := &decryptKeys{}
	var outputs []string
	for _, in := range inputs {
		info, err := workflows.Inspect(in)
		if err != nil {
			return reportError(err)
		}
		Logger.Debugf("%s: %s container", in, info.Mode)

		resolver, err := keys.resolver(info.Mode)
		if err != nil {
			return reportError(err)
		}

		opts := workflows.DecryptOptions{
			Input:    in,
			Output:   decryptOutput,
			Force:    decryptForce,
			Resolver: resolver,
		}
		var result *workflows.DecryptResult
		_, err = runJob("Decrypting "+in+"...", func(ctx context.Context, progress container.ProgressFunc) (workflows.Done, error) {
			var err error
			result, err = workflows.Decrypt(ctx, opts, progress)
			return workflows.Done{}, err
		})
		if err != nil {
			if len(outputs) > 0 {
				printResult("Decrypted before the failure:" + utils.FormatPaths(outputs))
			}
			return reportError(fmt.Errorf("%s: %w", in, err))
		}
		Logger.Infof("Decrypted %s to %s (%s)", in, result.Output, ui.Bytes(result.Bytes))
		outputs = append(outputs, result.Output)
	}

	msg := ui.Success.Sprint("✓") + fmt.Sprintf(" Decrypted %d %s", len(outputs), utils.Plural(len(outputs), "container")) +
		"\nThe following files were created:" + utils.FormatPaths(outputs)
	printResult(msg)
	return nil
}
