package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/kete/internal/configs"
	logger "github.com/PolarWolf314/kete/internal/logging"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	// RootCmd is the top-level kete command.
	RootCmd = &cobra.Command{
		Use:   "kete",
		Short: "Kete - encrypt files and text with a password or a key pair",
		Long: `Kete encrypts files into self-describing containers and text into
copy-and-paste SECURE-TEXT blocks.

Containers are sealed either with a password or for a recipient's RSA public
key. Large files can be split into verifiable parts with a manifest.

Examples:
  kete encrypt report.pdf                 # Encrypt with a password
  kete encrypt -r alice report.pdf        # Encrypt for a contact
  kete encrypt --split=100MiB backup.tar  # Split into 100 MiB parts
  kete decrypt 3f2a....enc                # Decrypt, recovering the filename
  kete verify backup/manifest.json        # Check parts without a key
  kete keys generate laptop --protect     # Create a key pair

Run 'kete help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
			Logger.Debugf("Config: %s, data: %s", configs.UserKeteSettings.UserConfigsPath, configs.UserKeteSettings.UserDataPath)
		},
		Run: func(cmd *cobra.Command, args []string) {
			figure.NewColorFigure("kete", "small", "cyan", true).Print()
			fmt.Println()
			fmt.Println("Run 'kete --help' to see available commands.")
		},
	}
)

// errReported is returned by commands that already printed their failure,
// so Execute exits non-zero without printing it again.
var errReported = errors.New("error already reported")

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(inspectCmd)
	RootCmd.AddCommand(keysCmd)
	RootCmd.AddCommand(textCmd)
	RootCmd.AddCommand(signCmd)
	RootCmd.AddCommand(verifySignatureCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(toolsCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetEncryptCommandState()
	resetDecryptCommandState()
	resetInspectCommandState()
	resetKeysCommandState()
	resetTextCommandState()
	resetSignCommandState()
	resetLogCommandState()
	resetConfigCommandState()
	resetCobraFlagState(RootCmd)
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
