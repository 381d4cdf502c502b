package bitwarden

import (
	"errors"
	"strings"
	"testing"
)

func setSecretCommandForTest(t *testing.T, fn func(command string, args ...string) (string, error)) {
	t.Helper()
	originalRunner := runSecretCommand
	runSecretCommand = fn
	t.Cleanup(func() {
		runSecretCommand = originalRunner
	})
}

func TestProviderSupports(t *testing.T) {
	t.Parallel()

	bitwardenProvider := provider{}
	for _, supportedRef := range []string{"bw://id", "BW://id", "bws://id", "bitwarden://id"} {
		if !bitwardenProvider.Supports(supportedRef) {
			t.Fatalf("expected %q to be supported", supportedRef)
		}
	}
	if bitwardenProvider.Supports("local://x") {
		t.Fatalf("did not expect local:// to be supported")
	}
}

func TestParseSecretID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "bw", ref: "bw://abc-123", want: "abc-123"},
		{name: "bws", ref: "bws://abc-123", want: "abc-123"},
		{name: "longForm", ref: "bitwarden://abc", want: "abc"},
		{name: "missingID", ref: "bw://", wantErr: true},
		{name: "wrongScheme", ref: "vault://abc", wantErr: true},
	}

	for _, testCase := range cases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseSecretID(testCase.ref)
			if testCase.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("got %q want %q", got, testCase.want)
			}
		})
	}
}

func TestParseBWSSecretOutput(t *testing.T) {
	t.Parallel()

	value, err := parseBWSSecretOutput(`{"id":"x","value":" secret-value "}`)
	if err != nil {
		t.Fatalf("parseBWSSecretOutput() error = %v", err)
	}
	if value != "secret-value" {
		t.Fatalf("value = %q", value)
	}

	if _, err := parseBWSSecretOutput("not json"); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
	if _, err := parseBWSSecretOutput(`{"value":""}`); err == nil {
		t.Fatalf("expected error for empty value")
	}
}

func TestResolveFallsBackToBWS(t *testing.T) {
	setSecretCommandForTest(t, func(command string, args ...string) (string, error) {
		if command == "bw" {
			return "", errors.New("bw is locked")
		}
		if command == "bws" {
			return `{"value":"from-bws"}`, nil
		}
		return "", errors.New("unexpected command " + command)
	})

	value, err := provider{}.Resolve("bw://secret-id")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if value != "from-bws" {
		t.Fatalf("value = %q", value)
	}
}

func TestResolvePrefersBW(t *testing.T) {
	var bwsCalled bool
	setSecretCommandForTest(t, func(command string, args ...string) (string, error) {
		if command == "bw" {
			if want := []string{"get", "secret", "secret-id", "--raw"}; strings.Join(args, " ") != strings.Join(want, " ") {
				t.Fatalf("bw args = %v", args)
			}
			return "from-bw\n", nil
		}
		bwsCalled = true
		return "", errors.New("should not reach bws")
	})

	value, err := provider{}.Resolve("bw://secret-id")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if value != "from-bw" {
		t.Fatalf("value = %q", value)
	}
	if bwsCalled {
		t.Fatalf("bws should not have been called")
	}
}
