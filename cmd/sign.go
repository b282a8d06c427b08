package cmd

import (
	"context"
	"errors"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	signKey    string
	signOutput string
	signForce  bool

	verifySigSigner string
)

func init() {
	signCmd.Flags().StringVarP(&signKey, "key", "k", "", "key pair to sign with")
	signCmd.Flags().StringVarP(&signOutput, "out", "o", "", "signature file (default FILE.sig)")
	signCmd.Flags().BoolVar(&signForce, "force", false, "overwrite an existing signature file")

	verifySignatureCmd.Flags().StringVarP(&verifySigSigner, "signer", "r", "", "key pair or contact expected to have signed (default: try all)")
}

// resetSignCommandState resets the signing commands' global state for testing.
func resetSignCommandState() {
	signKey = ""
	signOutput = ""
	signForce = false
	verifySigSigner = ""
}

var signCmd = &cobra.Command{
	Use:   "sign FILE",
	Short: "Sign a file with one of your key pairs",
	Long: `Writes an RSA-PSS (SHA-256) signature of FILE to FILE.sig, made with a
key pair from the keyring. Anyone holding the public key can check it with
'kete verify-signature'.

Examples:
  kete sign contract.pdf
  kete sign contract.pdf -k work -o contract.work.sig`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sign command")
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}

		result, err := workflows.Sign(context.Background(), ring, workflows.SignOptions{
			Input:      args[0],
			Output:     signOutput,
			KeyName:    signKey,
			Passphrase: askPassphrase,
			Select: func(names []string) (string, error) {
				return utils.PromptChoice("Select a key: ", names)
			},
			Force: signForce,
		})
		if err != nil {
			return reportError(err)
		}
		Logger.Debugf("Signed %s with %s", args[0], result.KeyName)

		printResult(ui.Success.Sprint("✓") + " Signed " + ui.Path.Sprint(args[0]) +
			" with " + ui.Highlight.Sprint(result.KeyName) +
			"\n    " + ui.Info.Sprint("→") + " " + ui.Path.Sprint(result.Signature))
		return nil
	},
}

var verifySignatureCmd = &cobra.Command{
	Use:   "verify-signature FILE [SIG]",
	Short: "Check a file's signature against the keyring",
	Long: `Checks that SIG (default FILE.sig) is a valid signature of FILE. With
--signer only that key pair or contact is tried; otherwise every public key
in the keyring is, and the one that matches is reported.

Examples:
  kete verify-signature contract.pdf -r alice
  kete verify-signature contract.pdf contract.work.sig`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting verify-signature command")
		opts := workflows.VerifySignatureOptions{Input: args[0], Signer: verifySigSigner}
		if len(args) == 2 {
			opts.Signature = args[1]
		}

		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		signer, err := workflows.VerifySignature(context.Background(), ring, opts)
		if errors.Is(err, kerrors.ErrBadSignature) {
			printResult(formatError(err))
			return errReported
		}
		if err != nil {
			return reportError(err)
		}

		printResult(ui.Success.Sprint("✓") + " SUCCESS: Signature is valid, signed by " + ui.Highlight.Sprint(signer))
		return nil
	},
}
