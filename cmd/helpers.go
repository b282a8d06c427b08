package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/PolarWolf314/kete/internal/configs"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/PolarWolf314/kete/internal/workflows"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// stdin is where --password-stdin and piped text are read from.
var stdin io.Reader = os.Stdin

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// runJob runs op as a workflows.Job and shows its progress. The spinner
// appears with the first progress event, so any prompt the operation
// raises before streaming starts is not drawn over. Ctrl-C cancels the job.
func runJob(message string, op workflows.Operation) (workflows.Done, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := workflows.Start(ctx, op)
	Logger.Debugf("Started job %s: %s", job.ID, message)

	var (
		s       *spinner.Spinner
		cleanup = func() {}
		done    workflows.Done
	)
	for ev := range job.Events() {
		switch e := ev.(type) {
		case workflows.Progress:
			if s == nil {
				s, cleanup = startSpinner(message, verbose)
			}
			s.Lock()
			s.Suffix = " " + message + " " + ui.Percent(e.Percent)
			s.Unlock()
			Logger.Debugf("Job %s at %d%%", job.ID, e.Percent)
		case workflows.Done:
			done = e
		case workflows.Failed:
			Logger.Debugf("Job %s failed: %v", job.ID, e.Err)
		}
	}
	cleanup()

	if err := job.Wait(); err != nil {
		if ctx.Err() != nil {
			return done, kerrors.ErrCancelled
		}
		return done, err
	}
	return done, nil
}

// formatError renders err the way every command reports failures.
func formatError(err error) string {
	return ui.Error.Sprint("✗") + " " + kerrors.Describe(err)
}

// reportError prints err to stderr and returns errReported, so the process
// exits non-zero without printing it twice.
func reportError(err error) error {
	Logger.Errorf("%v", err)
	fmt.Fprintln(os.Stderr, formatError(err))
	return errReported
}

// printResult writes a command's final message to stdout.
func printResult(msg string) {
	fmt.Print(ui.EnsureNewline(msg))
}

// readPassword gets a container password from the first line of stdin or
// from the terminal. New passwords are asked for twice.
func readPassword(fromStdin, confirm bool) (string, error) {
	if fromStdin {
		Logger.Debugf("Reading password from stdin")
		return utils.ReadSecretLine(stdin)
	}
	if confirm {
		return utils.ReadNewSecret("Password: ")
	}
	return utils.ReadSecret("Password: ")
}

// masterPassword returns the keyring master password from the environment
// or the terminal.
func masterPassword(confirm bool) (string, error) {
	if pw := os.Getenv(configs.MasterPasswordEnv); pw != "" {
		Logger.Debugf("Using master password from %s", configs.MasterPasswordEnv)
		return pw, nil
	}
	if confirm {
		return utils.ReadNewSecret("New keyring master password: ")
	}
	return utils.ReadSecret("Keyring master password: ")
}

// keyringPath resolves the keyring location from the environment and the user config.
func keyringPath() (string, error) {
	cfg, err := configs.EnsureUserConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load user config: %w", err)
	}
	path := cfg.KeyringPath()
	Logger.Debugf("Keyring path: %s", path)
	return path, nil
}

// openKeyring unlocks the user's keyring.
func openKeyring() (*keyring.Keyring, error) {
	path, err := keyringPath()
	if err != nil {
		return nil, err
	}
	if !keyring.Exists(path) {
		return nil, kerrors.ErrKeyringNotFound
	}
	master, err := masterPassword(false)
	if err != nil {
		return nil, err
	}
	ring, err := keyring.Open(path, master)
	if err != nil {
		return nil, err
	}
	Logger.Infof("Keyring unlocked: %d key pairs, %d contacts", len(ring.KeyPairs()), len(ring.Contacts()))
	return ring, nil
}

// askPassphrase prompts for the passphrase of a protected key pair.
func askPassphrase(name string) (string, error) {
	return utils.ReadSecret(fmt.Sprintf("Passphrase for %s: ", name))
}

// keyResolver wires the keyring's resolver to terminal prompts.
func keyResolver(ring *keyring.Keyring, keyName string) *keyring.Resolver {
	r := ring.Resolver()
	r.KeyName = keyName
	r.Passphrase = askPassphrase
	r.Select = func(names []string) (string, error) {
		return utils.PromptChoice("Select a key: ", names)
	}
	return r
}

// resetCobraFlagState restores every flag under cmd to its default to prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}
