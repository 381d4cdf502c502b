// Package bitwarden resolves bw:// references through the Bitwarden CLIs,
// trying the interactive vault CLI (bw) first and the Secrets Manager CLI
// (bws) second.
package bitwarden

import (
	"strings"

	"pivision-connect/providers"
)

type provider struct{}

func init() {
	providers.Register(provider{})
}

func (provider) Name() string {
	return "bitwarden"
}

func (provider) Supports(secretRef string) bool {
	normalizedRef := strings.ToLower(strings.TrimSpace(secretRef))
	return strings.HasPrefix(normalizedRef, "bw://") ||
		strings.HasPrefix(normalizedRef, "bws://") ||
		strings.HasPrefix(normalizedRef, "bitwarden://")
}

func (provider) Resolve(secretRef string) (string, error) {
	secretID, err := parseSecretID(secretRef)
	if err != nil {
		return "", err
	}

	if secretValue, err := resolveWithBW(secretID); err == nil {
		return secretValue, nil
	}

	return resolveWithBWS(secretID)
}
