package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"pivision-connect/internal/config"
)

// swapConnectorSeams redirects the connector's streams and helpers for one
// test, restoring them afterwards.
func swapConnectorSeams(t *testing.T, probe func(string) (string, error), session func(*config.Options) error) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	originalLookPath := lookPath
	originalOutput := connectorOutput
	originalDiagnostic := connectorDiagnostic
	originalStartSession := startSession

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	lookPath = probe
	connectorOutput = stdout
	connectorDiagnostic = stderr
	startSession = session

	t.Cleanup(func() {
		lookPath = originalLookPath
		connectorOutput = originalOutput
		connectorDiagnostic = originalDiagnostic
		startSession = originalStartSession
	})
	return stdout, stderr
}

func TestConnectHelperMissing(t *testing.T) {
	sessionCalls := 0
	stdout, stderr := swapConnectorSeams(t,
		func(string) (string, error) { return "", errors.New("not found") },
		func(*config.Options) error {
			sessionCalls++
			return nil
		},
	)

	err := connect(config.DefaultOptions())

	var exitErr *exitStatusError
	if !errors.As(err, &exitErr) || exitErr.code != 1 {
		t.Fatalf("connect() = %v, want exit status 1", err)
	}
	if sessionCalls != 0 {
		t.Fatalf("no session must be attempted when the helper is missing")
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should stay empty, got %q", stdout.String())
	}

	diagnostic := stderr.String()
	if got := strings.Count(diagnostic, helperMissingMessage); got != 1 {
		t.Fatalf("error line appeared %d times in %q", got, diagnostic)
	}
	if got := strings.Count(diagnostic, helperInstallHint); got != 1 {
		t.Fatalf("install hint appeared %d times in %q", got, diagnostic)
	}
}

func TestConnectHelperPresent(t *testing.T) {
	var sessionOptions *config.Options
	stdout, stderr := swapConnectorSeams(t,
		func(name string) (string, error) {
			if name != helperBinaryName {
				t.Fatalf("probed for %q, want %q", name, helperBinaryName)
			}
			return "/usr/bin/sshpass", nil
		},
		func(programOptions *config.Options) error {
			if buffered := connectorOutput.(*bytes.Buffer); !strings.Contains(buffered.String(), "Connecting to") {
				t.Fatalf("connecting line must be printed before delegation")
			}
			sessionOptions = programOptions
			return nil
		},
	)

	programOptions := config.DefaultOptions()
	programOptions.User = "operator"
	programOptions.Host = "rig01.local"

	if err := connect(programOptions); err != nil {
		t.Fatalf("connect() error = %v", err)
	}
	if sessionOptions != programOptions {
		t.Fatalf("session did not receive the loaded options")
	}
	if want := "Connecting to operator@rig01.local...\n"; stdout.String() != want {
		t.Fatalf("stdout = %q, want %q", stdout.String(), want)
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr should stay empty, got %q", stderr.String())
	}
}

func TestConnectPropagatesSessionExit(t *testing.T) {
	swapConnectorSeams(t,
		func(string) (string, error) { return "/usr/bin/sshpass", nil },
		func(*config.Options) error { return &exitStatusError{code: 255} },
	)

	err := connect(config.DefaultOptions())
	var exitErr *exitStatusError
	if !errors.As(err, &exitErr) || exitErr.code != 255 {
		t.Fatalf("connect() = %v, want exit status 255", err)
	}
}
