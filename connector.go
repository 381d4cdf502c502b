package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"pivision-connect/internal/config"
)

// helperBinaryName is the password-injection helper the rig workflow depends on.
const helperBinaryName = "sshpass"

const (
	helperMissingMessage = "sshpass is required but was not found on PATH."
	helperInstallHint    = "Install it first, e.g.: sudo apt-get install sshpass"
)

// Seams for tests; production code always talks to the real PATH and streams.
var (
	lookPath                      = exec.LookPath
	connectorOutput     io.Writer = os.Stdout
	connectorDiagnostic io.Writer = os.Stderr
	startSession                  = delegateSession
)

// ensureHelperInstalled probes PATH for the helper. When it is missing the
// fixed diagnostics go to stderr and the process maps to exit status 1; no
// secret lookup, prompt, or connecting line may precede this check.
func ensureHelperInstalled() error {
	if _, err := lookPath(helperBinaryName); err != nil {
		fmt.Fprintln(connectorDiagnostic, helperMissingMessage)
		fmt.Fprintln(connectorDiagnostic, helperInstallHint)
		return &exitStatusError{code: 1}
	}
	return nil
}

// connect verifies the helper is installed, announces the target, and blocks
// on the delegated session. A missing helper never prints the connecting line.
func connect(programOptions *config.Options) error {
	if err := ensureHelperInstalled(); err != nil {
		return err
	}

	fmt.Fprintf(connectorOutput, "Connecting to %s@%s...\n", programOptions.User, programOptions.Host)
	return startSession(programOptions)
}
