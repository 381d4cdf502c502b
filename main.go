// Command pivision-connect opens an interactive SSH session to the camera rig
// node. It takes no arguments: connection parameters come from compiled-in rig
// defaults, optional config files next to the binary, and PIVISION_* environment
// variables, in that order of increasing precedence.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"pivision-connect/internal/config"
	"pivision-connect/providers"

	_ "pivision-connect/providers/bitwarden"
	_ "pivision-connect/providers/infisical"
	_ "pivision-connect/providers/local"
)

// statusError carries a process exit code plus user-facing error text.
type statusError struct {
	code int
	err  error
}

func (statusErr *statusError) Error() string {
	return statusErr.err.Error()
}

// exitStatusError propagates a delegated session's exit code without any
// additional output; the session already reported its own failure.
type exitStatusError struct {
	code int
}

func (exitErr *exitStatusError) Error() string {
	return fmt.Sprintf("session exited with status %d", exitErr.code)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		var exitErr *exitStatusError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			fmt.Fprintln(os.Stderr, "Error:", statusErr.err)
			os.Exit(statusErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

// run loads configuration, resolves the password, and hands off to the
// connector. extraArgs never feeds into connection parameters; the rig target
// is configuration, not argv.
func run(extraArgs []string) error {
	if len(extraArgs) > 0 {
		fmt.Fprintf(os.Stderr, "Note: ignoring arguments: %s\n", strings.Join(extraArgs, " "))
	}

	programOptions, err := config.Load()
	if err != nil {
		return fail(2, "%w", err)
	}
	if err := config.Validate(programOptions); err != nil {
		return fail(2, "%w", err)
	}

	// The helper probe runs before password resolution: a missing sshpass must
	// not trigger secret backend traffic or an interactive prompt.
	if programOptions.Mode == config.ModeSSHPass {
		if err := ensureHelperInstalled(); err != nil {
			return err
		}
	}

	if err := resolvePassword(programOptions); err != nil {
		return fail(2, "%w", err)
	}

	if programOptions.Mode == config.ModeNative {
		return runNativeSession(programOptions)
	}
	return connect(programOptions)
}

// fail wraps an error with a specific process exit code.
func fail(code int, format string, args ...any) error {
	return &statusError{
		code: code,
		err:  fmt.Errorf(format, args...),
	}
}

var resolvePasswordFromSecretRef = providers.ResolvePasswordRef

// resolvePassword fills Options.Password from a secret reference or, as a last
// resort, an interactive prompt. Validation already rejected setting both the
// password and a secret reference.
func resolvePassword(programOptions *config.Options) error {
	if strings.TrimSpace(programOptions.Password) != "" {
		return nil
	}

	if strings.TrimSpace(programOptions.PasswordSecretRef) != "" {
		resolvedPassword, err := resolvePasswordFromSecretRef(programOptions.PasswordSecretRef)
		if err != nil {
			return fmt.Errorf("resolve password secret reference: %w", err)
		}
		programOptions.Password = resolvedPassword
		return nil
	}

	if !isTerminal(os.Stdin) {
		return errors.New("no password configured and no interactive terminal to prompt on")
	}

	inputReader := bufio.NewReader(os.Stdin)
	promptedPassword, err := promptPassword(inputReader, fmt.Sprintf("Password for %s@%s: ", programOptions.User, programOptions.Host))
	if err != nil {
		return err
	}
	programOptions.Password = promptedPassword
	return nil
}
