// Package config layers the rig connection parameters: compiled-in defaults,
// config files discovered next to the binary, an explicit PIVISION_CONFIG
// file, and finally PIVISION_* process environment variables. Later layers
// win. Nothing is ever read from argv.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Session modes. ModeSSHPass delegates to the sshpass helper; ModeNative opens
// the session in-process over golang.org/x/crypto/ssh.
const (
	ModeSSHPass = "sshpass"
	ModeNative  = "native"
)

const (
	// defaultUser and defaultHost match the factory image of the camera rig.
	defaultUser = "pi"
	defaultHost = "raspberrypi.local"
	// defaultPassword is the rig's factory credential so a bare binary still
	// reaches an unprovisioned node. Every layer above can replace it, and
	// PASSWORD_SECRET_REF moves the credential out of files entirely.
	defaultPassword = "raspberry"

	defaultSSHPort        = 22
	defaultTimeoutSeconds = 10
	defaultKnownHostsPath = "~/.ssh/known_hosts"
)

// Options groups every connection parameter for a single invocation.
type Options struct {
	User              string
	Host              string
	Port              int
	Password          string // #nosec G117 -- runtime-only credential container
	PasswordSecretRef string

	TimeoutSec            int
	Mode                  string
	ExecReplace           bool
	KnownHosts            string
	InsecureIgnoreHostKey bool
	SSHOptions            []string
}

// DefaultOptions returns the compiled-in rig defaults, the lowest layer.
func DefaultOptions() *Options {
	return &Options{
		User:       defaultUser,
		Host:       defaultHost,
		Port:       defaultSSHPort,
		Password:   defaultPassword,
		TimeoutSec: defaultTimeoutSeconds,
		Mode:       ModeSSHPass,
		KnownHosts: defaultKnownHostsPath,
	}
}

// Validate checks the fully layered options before any session is attempted.
func Validate(programOptions *Options) error {
	if programOptions == nil {
		return errors.New("program options are required")
	}
	if strings.TrimSpace(programOptions.User) == "" {
		return errors.New("user must not be empty")
	}
	if strings.TrimSpace(programOptions.Host) == "" {
		return errors.New("host must not be empty")
	}
	if programOptions.Port < 1 || programOptions.Port > 65535 {
		return errors.New("port must be in range 1..65535")
	}
	if programOptions.TimeoutSec <= 0 {
		return errors.New("timeout must be greater than zero")
	}
	if programOptions.Mode != ModeSSHPass && programOptions.Mode != ModeNative {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSSHPass, ModeNative, programOptions.Mode)
	}
	if strings.TrimSpace(programOptions.Password) != "" && strings.TrimSpace(programOptions.PasswordSecretRef) != "" {
		return errors.New("use either PASSWORD or PASSWORD_SECRET_REF, not both")
	}
	return nil
}
