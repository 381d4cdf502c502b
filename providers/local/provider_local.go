// Package local resolves local:// references from this tool's own
// environment, so a wrapper script can inject the rig password without
// writing it to a file.
package local

import (
	"errors"
	"os"
	"strings"

	"pivision-connect/providers"
)

const passwordEnvName = "PIVISION_PASSWORD"

type provider struct{}

var getEnv = os.Getenv

func init() {
	providers.Register(provider{})
}

func (provider) Name() string {
	return "local"
}

func (provider) Supports(secretRef string) bool {
	normalizedRef := strings.ToLower(strings.TrimSpace(secretRef))
	return strings.HasPrefix(normalizedRef, "local://")
}

func (provider) Resolve(_ string) (string, error) {
	password := getEnv(passwordEnvName)
	if strings.TrimSpace(password) == "" {
		return "", errors.New("local password is required (set " + passwordEnvName + " or run interactively)")
	}
	return password, nil
}
