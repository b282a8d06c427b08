package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/PolarWolf314/kete/internal/armor"
	"github.com/PolarWolf314/kete/internal/configs"
	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	textIn        string
	textRecipient string
	textPassword  bool
)

func init() {
	textCmd.PersistentFlags().StringVarP(&textIn, "in", "i", "", "read the text from this file instead of stdin")
	textEncryptCmd.Flags().StringVarP(&textRecipient, "recipient", "r", "", "encrypt for this keyring key pair or contact")
	textEncryptCmd.Flags().BoolVarP(&textPassword, "password", "p", false, "use a password even if a default recipient is configured")

	textCmd.AddCommand(textEncryptCmd)
	textCmd.AddCommand(textDecryptCmd)
}

// resetTextCommandState resets the text commands' global state for testing.
func resetTextCommandState() {
	textIn = ""
	textRecipient = ""
	textPassword = false
}

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Encrypt and decrypt SECURE-TEXT blocks",
	Long: `Turns short text into a SECURE-TEXT block that can be pasted into
chat or email, and back.

Text is read from stdin, or from --in. Passwords are asked for on the
terminal, so stdin stays free for the text.

Examples:
  echo "the code is 4711" | kete text encrypt
  kete text encrypt -r alice --in note.txt > note.asc
  kete text decrypt --in note.asc`,
}

var textEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt text into a SECURE-TEXT block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting text encrypt command")
		plaintext, err := readText()
		if err != nil {
			return reportError(err)
		}
		defer utils.Wipe(plaintext)

		recipient := textRecipient
		if recipient == "" && !textPassword {
			if cfg, err := configs.LoadUserConfig(); err == nil {
				recipient = cfg.Encrypt.DefaultRecipient
			}
		}

		opts := workflows.TextOptions{Recipient: recipient}
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
		} else {
			if opts.Password, err = utils.ReadNewSecret("Password: "); err != nil {
				return reportError(err)
			}
		}

		block, err := workflows.EncryptText(plaintext, opts)
		if err != nil {
			return reportError(err)
		}
		fmt.Print(block)
		return nil
	},
}

var textDecryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a SECURE-TEXT block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting text decrypt command")
		data, err := readText()
		if err != nil {
			return reportError(err)
		}
		text := string(data)

		mode, err := armor.Detect(text)
		if err != nil {
			return reportError(err)
		}
		Logger.Debugf("SECURE-TEXT block in %s mode", mode)

		var ring *keyring.Keyring
		if mode == container.WrapHybrid {
			if ring, err = openKeyring(); err != nil {
				return reportError(err)
			}
		}
		password := func() (string, error) {
			return utils.ReadSecret("Password: ")
		}

		plaintext, err := workflows.DecryptText(text, password, ring, askPassphrase)
		if err != nil {
			return reportError(err)
		}
		defer utils.Wipe(plaintext)
		if _, err := os.Stdout.Write(plaintext); err != nil {
			return reportError(err)
		}
		return nil
	},
}

// readText reads the text to process from --in or stdin.
func readText() ([]byte, error) {
	if textIn != "" {
		Logger.Debugf("Reading text from %s", textIn)
		return os.ReadFile(textIn)
	}
	if f, ok := stdin.(*os.File); ok && f == os.Stdin {
		return utils.ReadStdin()
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stdin is empty")
	}
	return data, nil
}
