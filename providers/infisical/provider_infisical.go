// Package infisical resolves infisical:// references through the Infisical
// SDK using universal-auth machine identities. The runtime configuration
// (site URL, client credentials, project, environment) comes from INFISICAL_*
// environment variables, with the reference itself able to pin project and
// environment via query parameters.
package infisical

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pivision-connect/providers"
)

type provider struct{}

func init() {
	providers.Register(provider{})
}

func (provider) Name() string {
	return "infisical"
}

func (provider) Supports(secretRef string) bool {
	_, ok := stripInfisicalPrefix(strings.TrimSpace(secretRef))
	return ok
}

func (provider) Resolve(secretRef string) (string, error) {
	secretSpec, err := parseSecretRef(secretRef)
	if err != nil {
		return "", err
	}
	return resolveWithSDK(secretSpec)
}

// secretRefSpec is one parsed infisical:// reference.
type secretRefSpec struct {
	secretName  string
	projectID   string
	environment string
}

// parseSecretRef accepts infisical://<name>, optionally with
// ?projectId=...&env=... query parameters overriding the environment-derived
// runtime configuration.
func parseSecretRef(secretRef string) (secretRefSpec, error) {
	trimmedRef := strings.TrimSpace(secretRef)
	body, ok := stripInfisicalPrefix(trimmedRef)
	if !ok {
		return secretRefSpec{}, fmt.Errorf("invalid infisical secret ref %q", secretRef)
	}

	body = strings.TrimPrefix(strings.TrimSpace(body), "//")

	secretPart := body
	queryString := ""
	if index := strings.Index(body, "?"); index >= 0 {
		secretPart = body[:index]
		queryString = body[index+1:]
	}

	secretName := strings.Trim(strings.TrimSpace(secretPart), "/")
	if secretName == "" {
		return secretRefSpec{}, errors.New("infisical secret ref is missing secret identifier")
	}

	queryValues, err := url.ParseQuery(queryString)
	if err != nil {
		return secretRefSpec{}, fmt.Errorf("invalid infisical secret ref query: %w", err)
	}

	return secretRefSpec{
		secretName: secretName,
		projectID: firstNonEmpty(
			strings.TrimSpace(queryValues.Get("projectId")),
			strings.TrimSpace(queryValues.Get("projectID")),
			strings.TrimSpace(queryValues.Get("workspaceId")),
			strings.TrimSpace(queryValues.Get("workspaceID")),
		),
		environment: firstNonEmpty(
			strings.TrimSpace(queryValues.Get("environment")),
			strings.TrimSpace(queryValues.Get("env")),
		),
	}, nil
}

func stripInfisicalPrefix(secretRef string) (string, bool) {
	prefixes := []string{"infisical://", "inf://", "infisical:", "inf:"}
	for _, prefix := range prefixes {
		if len(secretRef) < len(prefix) {
			continue
		}
		if strings.EqualFold(secretRef[:len(prefix)], prefix) {
			return secretRef[len(prefix):], true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
