package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"pivision-connect/internal/config"
)

// openSSHConnectionFailure is what the OpenSSH client exits with when no
// session could be established; native mode mirrors it so callers see the
// same codes regardless of mode.
const openSSHConnectionFailure = 255

var dialSSH = ssh.Dial

// runNativeSession opens the interactive session in-process instead of
// delegating to sshpass, for workstations where the helper cannot be
// installed. The remote shell's exit status still passes through unchanged.
func runNativeSession(programOptions *config.Options) error {
	clientConfig, err := buildClientConfig(programOptions)
	if err != nil {
		return fail(2, "%w", err)
	}

	fmt.Fprintf(connectorOutput, "Connecting to %s@%s...\n", programOptions.User, programOptions.Host)

	address := net.JoinHostPort(programOptions.Host, strconv.Itoa(programOptions.Port))
	client, err := dialSSH("tcp", address, clientConfig)
	if err != nil {
		return fail(openSSHConnectionFailure, "ssh dial %s: %w", address, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fail(openSSHConnectionFailure, "create session: %w", err)
	}
	defer session.Close()

	return runInteractiveShell(session)
}

// buildClientConfig mirrors the delegated invocation: password auth, the
// configured dial timeout, and known_hosts verification unless disabled.
func buildClientConfig(programOptions *config.Options) (*ssh.ClientConfig, error) {
	hostKeyCallback, err := buildHostKeyCallback(programOptions.InsecureIgnoreHostKey, programOptions.KnownHosts)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            programOptions.User,
		Auth:            []ssh.AuthMethod{ssh.Password(programOptions.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         time.Duration(programOptions.TimeoutSec) * time.Second,
	}, nil
}

// runInteractiveShell puts the local terminal in raw mode, requests a remote
// PTY sized to the local window, and blocks until the remote shell exits.
func runInteractiveShell(session *ssh.Session) error {
	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	terminalWidth, terminalHeight := 80, 24
	if fd, ok := terminalFD(os.Stdin); ok && term.IsTerminal(fd) {
		if width, height, sizeErr := term.GetSize(fd); sizeErr == nil {
			terminalWidth, terminalHeight = width, height
		}

		previousState, rawErr := term.MakeRaw(fd)
		if rawErr != nil {
			return fail(2, "set raw terminal mode: %w", rawErr)
		}
		defer func() {
			_ = term.Restore(fd, previousState)
		}()
	}

	terminalType := os.Getenv("TERM")
	if terminalType == "" {
		terminalType = "xterm-256color"
	}

	terminalModes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(terminalType, terminalHeight, terminalWidth, terminalModes); err != nil {
		return fail(openSSHConnectionFailure, "request pty: %w", err)
	}

	if err := session.Shell(); err != nil {
		return fail(openSSHConnectionFailure, "start remote shell: %w", err)
	}

	if err := session.Wait(); err != nil {
		var sshExitErr *ssh.ExitError
		if errors.As(err, &sshExitErr) {
			return &exitStatusError{code: sshExitErr.ExitStatus()}
		}
		return fail(openSSHConnectionFailure, "session ended abnormally: %w", err)
	}
	return nil
}
