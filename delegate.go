package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"pivision-connect/internal/config"
)

var execReplace = unix.Exec

// delegateSession invokes the helper in the foreground with inherited stdio
// and blocks until the interactive session ends. The session's exit code
// becomes this process's exit code, unmodified.
func delegateSession(programOptions *config.Options) error {
	argv := buildHelperArgv(programOptions)

	if programOptions.ExecReplace {
		helperPath, err := lookPath(argv[0])
		if err != nil {
			return fail(2, "locate %s: %w", argv[0], err)
		}
		if err := execReplace(helperPath, argv, os.Environ()); err != nil {
			return fail(2, "exec %s: %w", argv[0], err)
		}
		return nil
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 -- argv is built from validated config, not user input
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitStatusError{code: exitErr.ExitCode()}
		}
		return fail(2, "start session: %w", err)
	}
	return nil
}

// buildHelperArgv assembles the sshpass invocation. The password travels via
// -p to match the helper's prompt-feeding mode; everything after "ssh" is the
// client invocation the helper supervises.
func buildHelperArgv(programOptions *config.Options) []string {
	argv := []string{
		helperBinaryName,
		"-p", programOptions.Password,
		"ssh",
		"-p", strconv.Itoa(programOptions.Port),
	}
	argv = append(argv, programOptions.SSHOptions...)
	argv = append(argv, fmt.Sprintf("%s@%s", programOptions.User, programOptions.Host))
	return argv
}
