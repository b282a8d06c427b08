package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	keysBits          int
	keysProtect       bool
	keysExportPrivate bool
	keysExportOut     string
	keysDeleteYes     bool
)

func init() {
	keysGenerateCmd.Flags().IntVar(&keysBits, "bits", keyring.DefaultKeySize, "RSA key size: 2048, 3072 or 4096")
	keysGenerateCmd.Flags().BoolVar(&keysProtect, "protect", false, "protect the private key with its own passphrase")
	keysExportCmd.Flags().BoolVar(&keysExportPrivate, "private", false, "export the private key instead of the public key")
	keysExportCmd.Flags().StringVarP(&keysExportOut, "out", "o", "", "write to this file instead of stdout")
	keysDeleteCmd.Flags().BoolVarP(&keysDeleteYes, "yes", "y", false, "delete without asking")

	keysContactCmd.AddCommand(keysContactAddCmd)

	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(keysContactCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysExportCmd)
	keysCmd.AddCommand(keysDeleteCmd)
}

// resetKeysCommandState resets the keys commands' global state for testing.
func resetKeysCommandState() {
	keysBits = keyring.DefaultKeySize
	keysProtect = false
	keysExportPrivate = false
	keysExportOut = ""
	keysDeleteYes = false
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage your key pairs and contacts",
	Long: `Manages the keyring: your own RSA key pairs and your contacts' public
keys, stored together in one file encrypted with a master password.

Set KETE_MASTER_PASSWORD to unlock the keyring without a prompt, and
KETE_KEYRING to use a keyring other than the configured one.`,
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys init command")
		path, err := keyringPath()
		if err != nil {
			return reportError(err)
		}
		if keyring.Exists(path) {
			return reportError(kerrors.ErrKeyringExists)
		}
		master, err := masterPassword(true)
		if err != nil {
			return reportError(err)
		}

		s, cleanup := startSpinner("Creating keyring...", verbose)
		defer cleanup()
		if _, err := workflows.InitKeyring(path, master); err != nil {
			s.FinalMSG = formatError(err)
			return errReported
		}
		s.FinalMSG = ui.Success.Sprint("✓") + " Keyring created at " + ui.Path.Sprint(path) + "\n" +
			ui.Info.Sprint("→") + " Create a key pair with " + ui.Code.Sprint("kete keys generate <name>")
		return nil
	},
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate NAME",
	Short: "Generate a new RSA key pair",
	Long: `Generates an RSA key pair and stores it in the keyring under NAME.

With --protect the private key is additionally encrypted with its own
passphrase, asked for whenever the key is used.

Examples:
  kete keys generate laptop
  kete keys generate work --bits 3072 --protect`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys generate command")
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}

		opts := workflows.GenerateKeyOptions{Name: args[0], Bits: keysBits}
		if keysProtect {
			if opts.Passphrase, err = utils.ReadNewSecret(fmt.Sprintf("New passphrase for %s: ", args[0])); err != nil {
				return reportError(err)
			}
		}

		s, cleanup := startSpinner(fmt.Sprintf("Generating %d-bit key pair...", keysBits), verbose)
		defer cleanup()
		info, err := workflows.GenerateKey(ring, opts)
		if err != nil {
			s.FinalMSG = formatError(err)
			return errReported
		}
		s.FinalMSG = ui.Success.Sprint("✓") + " Key pair " + ui.Highlight.Sprint(info.Name) + " generated\n" +
			"    Fingerprint: " + info.Fingerprint + "\n" +
			ui.Info.Sprint("→") + " Share the public key with " + ui.Code.Sprint("kete keys export "+info.Name)
		return nil
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import NAME PRIVATE_KEY [PUBLIC_KEY]",
	Short: "Import an existing private key",
	Long: `Imports a PEM (PKCS#1, PKCS#8) or OpenSSH private key file as a key pair.
The key is stored as given, so a protected key stays protected.

When PUBLIC_KEY is given it must be the public half of PRIVATE_KEY.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys import command")
		name := args[0]
		priv, err := os.ReadFile(args[1])
		if err != nil {
			return reportError(err)
		}
		defer utils.Wipe(priv)
		var pub []byte
		if len(args) == 3 {
			if pub, err = os.ReadFile(args[2]); err != nil {
				return reportError(err)
			}
		}

		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}

		info, err := workflows.ImportKey(ring, name, priv, pub, "")
		if errors.Is(err, kerrors.ErrPassphraseRequired) {
			passphrase, perr := askPassphrase(name)
			if perr != nil {
				return reportError(perr)
			}
			info, err = workflows.ImportKey(ring, name, priv, pub, passphrase)
		}
		if err != nil {
			return reportError(err)
		}

		protected := ""
		if info.Protected {
			protected = " (passphrase protected)"
		}
		printResult(ui.Success.Sprint("✓") + " Key pair " + ui.Highlight.Sprint(info.Name) + " imported" + protected + "\n" +
			"    Fingerprint: " + info.Fingerprint)
		return nil
	},
}

var keysContactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts' public keys",
}

var keysContactAddCmd = &cobra.Command{
	Use:   "add NAME PUBLIC_KEY",
	Short: "Add a contact's public key",
	Long: `Adds someone else's public key so you can encrypt for them with
'kete encrypt -r NAME'. PEM and OpenSSH authorized_keys formats are accepted.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys contact add command")
		pub, err := os.ReadFile(args[1])
		if err != nil {
			return reportError(err)
		}
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		info, err := workflows.AddContact(ring, args[0], pub)
		if err != nil {
			return reportError(err)
		}
		printResult(ui.Success.Sprint("✓") + " Contact " + ui.Highlight.Sprint(info.Name) + " added\n" +
			"    Fingerprint: " + info.Fingerprint + "\n" +
			ui.Info.Sprint("→") + " Compare the fingerprint with " + info.Name + " before encrypting for them")
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key pairs and contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys list command")
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		keys := workflows.ListKeys(ring)
		if len(keys) == 0 {
			fmt.Println("The keyring is empty.")
			fmt.Println(ui.Info.Sprint("→") + " Create a key pair with " + ui.Code.Sprint("kete keys generate <name>"))
			return nil
		}
		fmt.Print(formatKeyList(keys))
		return nil
	},
}

func formatKeyList(keys []workflows.KeyInfo) string {
	var b strings.Builder
	for _, k := range keys {
		flags := ""
		if k.Protected {
			flags = " protected"
		}
		fmt.Fprintf(&b, "%-20s %-9s %5d  %s%s\n", k.Name, k.Kind(), k.Bits, ui.Muted.Sprint(k.Fingerprint), flags)
	}
	return b.String()
}

var keysExportCmd = &cobra.Command{
	Use:   "export NAME",
	Short: "Print a public key, or with --private a private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys export command")
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		pem, err := workflows.ExportKey(ring, args[0], keysExportPrivate)
		if err != nil {
			return reportError(err)
		}
		if keysExportPrivate {
			Logger.WarnfAlways("Exporting the private key of %s; keep the output secret", args[0])
		}

		if keysExportOut == "" {
			fmt.Print(ui.EnsureNewline(pem))
			return nil
		}
		perm := os.FileMode(0644)
		if keysExportPrivate {
			perm = 0600
		}
		if err := os.WriteFile(keysExportOut, []byte(ui.EnsureNewline(pem)), perm); err != nil {
			return reportError(err)
		}
		printResult(ui.Success.Sprint("✓") + " Exported " + args[0] + " to " + ui.Path.Sprint(keysExportOut))
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a key pair or contact",
	Long: `Deletes a key pair or contact from the keyring. Containers sealed for a
deleted key pair can no longer be opened unless the key was exported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys delete command")
		ring, err := openKeyring()
		if err != nil {
			return reportError(err)
		}
		if !keysDeleteYes {
			answer, err := utils.PromptChoice(fmt.Sprintf("Delete %s? ", args[0]), []string{"no", "yes"})
			if err != nil {
				return reportError(err)
			}
			if answer != "yes" {
				return reportError(kerrors.ErrCancelled)
			}
		}
		if err := workflows.DeleteKey(ring, args[0]); err != nil {
			return reportError(err)
		}
		printResult(ui.Success.Sprint("✓") + " Deleted " + ui.Highlight.Sprint(args[0]))
		return nil
	},
}
