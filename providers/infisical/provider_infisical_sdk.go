package infisical

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	infisicalsdk "github.com/infisical/go-sdk"
)

const defaultInfisicalSiteURL = "https://app.infisical.com"

type sdkRuntimeConfig struct {
	siteURL          string
	projectID        string
	environment      string
	clientID         string
	clientSecret     string
	organizationSlug string
}

type sdkRetrieveSecretOptions struct {
	secretKey   string
	projectID   string
	environment string
}

// infisicalSDKClient narrows the SDK surface this backend needs so tests can
// substitute a fake.
type infisicalSDKClient interface {
	LoginUniversalAuth(clientID, clientSecret, organizationSlug string) error
	RetrieveSecret(options sdkRetrieveSecretOptions) (string, error)
}

var (
	envGetter = os.Getenv

	newInfisicalSDKClient = func(siteURL string) infisicalSDKClient {
		return &sdkAdapter{
			client: infisicalsdk.NewInfisicalClient(context.Background(), infisicalsdk.Config{SiteUrl: siteURL}),
		}
	}
)

// cacheKey pins a cached secret to the full identity it was fetched under,
// so a credential or target change never serves a stale value.
type cacheKey struct {
	siteURL     string
	projectID   string
	environment string
	clientID    string
	orgSlug     string
	secretName  string
}

var (
	cacheMu     sync.RWMutex
	secretCache = map[cacheKey]string{}
)

func resolveWithSDK(secretSpec secretRefSpec) (string, error) {
	resolvedConfig, err := loadSDKRuntimeConfig(secretSpec)
	if err != nil {
		return "", err
	}

	key := cacheKey{
		siteURL:     strings.ToLower(resolvedConfig.siteURL),
		projectID:   resolvedConfig.projectID,
		environment: resolvedConfig.environment,
		clientID:    resolvedConfig.clientID,
		orgSlug:     resolvedConfig.organizationSlug,
		secretName:  secretSpec.secretName,
	}
	cacheMu.RLock()
	cachedSecret, cached := secretCache[key]
	cacheMu.RUnlock()
	if cached {
		return cachedSecret, nil
	}

	secretValue, err := fetchSecret(resolvedConfig, secretSpec.secretName)
	if err != nil {
		return "", err
	}

	cacheMu.Lock()
	secretCache[key] = secretValue
	cacheMu.Unlock()
	return secretValue, nil
}

// fetchSecret performs one login plus retrieval round trip against the SDK.
func fetchSecret(resolvedConfig sdkRuntimeConfig, secretName string) (string, error) {
	client := newInfisicalSDKClient(resolvedConfig.siteURL)
	if err := client.LoginUniversalAuth(
		resolvedConfig.clientID,
		resolvedConfig.clientSecret,
		resolvedConfig.organizationSlug,
	); err != nil {
		return "", err
	}

	return client.RetrieveSecret(sdkRetrieveSecretOptions{
		secretKey:   secretName,
		projectID:   resolvedConfig.projectID,
		environment: resolvedConfig.environment,
	})
}

func loadSDKRuntimeConfig(secretSpec secretRefSpec) (sdkRuntimeConfig, error) {
	rawSiteURL := firstNonEmpty(
		strings.TrimSpace(envGetter("INFISICAL_SITE_URL")),
		strings.TrimSpace(envGetter("INFISICAL_API_URL")), // compatibility alias
		defaultInfisicalSiteURL,
	)
	normalizedSiteURL, err := normalizeInfisicalSiteURL(rawSiteURL)
	if err != nil {
		return sdkRuntimeConfig{}, err
	}

	resolvedConfig := sdkRuntimeConfig{
		siteURL:      normalizedSiteURL,
		clientID:     strings.TrimSpace(envGetter("INFISICAL_UNIVERSAL_AUTH_CLIENT_ID")),
		clientSecret: strings.TrimSpace(envGetter("INFISICAL_UNIVERSAL_AUTH_CLIENT_SECRET")),
		projectID: firstNonEmpty(
			secretSpec.projectID,
			strings.TrimSpace(envGetter("INFISICAL_PROJECT_ID")),
		),
		environment: firstNonEmpty(
			secretSpec.environment,
			strings.TrimSpace(envGetter("INFISICAL_ENV")),
			strings.TrimSpace(envGetter("INFISICAL_ENVIRONMENT")),
		),
		organizationSlug: strings.TrimSpace(envGetter("INFISICAL_AUTH_ORGANIZATION_SLUG")),
	}

	var missingSettings []string
	if resolvedConfig.clientID == "" {
		missingSettings = append(missingSettings, "INFISICAL_UNIVERSAL_AUTH_CLIENT_ID")
	}
	if resolvedConfig.clientSecret == "" {
		missingSettings = append(missingSettings, "INFISICAL_UNIVERSAL_AUTH_CLIENT_SECRET")
	}
	if resolvedConfig.projectID == "" {
		missingSettings = append(missingSettings, "INFISICAL_PROJECT_ID")
	}
	if resolvedConfig.environment == "" {
		missingSettings = append(missingSettings, "INFISICAL_ENV (or INFISICAL_ENVIRONMENT)")
	}
	if len(missingSettings) > 0 {
		return sdkRuntimeConfig{}, fmt.Errorf("incomplete infisical configuration: set %s", strings.Join(missingSettings, ", "))
	}

	return resolvedConfig, nil
}

// sdkAdapter maps the narrow infisicalSDKClient interface onto the real SDK.
type sdkAdapter struct {
	client infisicalsdk.InfisicalClientInterface
}

func (adapter *sdkAdapter) LoginUniversalAuth(clientID, clientSecret, organizationSlug string) error {
	authClient := adapter.client.Auth()
	if organizationSlug != "" {
		authClient = authClient.WithOrganizationSlug(organizationSlug)
	}

	if _, err := authClient.UniversalAuthLogin(clientID, clientSecret); err != nil {
		return fmt.Errorf("infisical universal auth login failed: %w", err)
	}
	return nil
}

func (adapter *sdkAdapter) RetrieveSecret(options sdkRetrieveSecretOptions) (string, error) {
	secret, err := adapter.client.Secrets().Retrieve(infisicalsdk.RetrieveSecretOptions{
		SecretKey:   options.secretKey,
		ProjectID:   options.projectID,
		Environment: options.environment,
	})
	if err != nil {
		return "", fmt.Errorf("infisical secret retrieval failed: %w", err)
	}

	secretValue := strings.TrimSpace(secret.SecretValue)
	if secretValue == "" {
		return "", errors.New("infisical response did not contain a non-empty secret value")
	}
	return secretValue, nil
}

func normalizeInfisicalSiteURL(rawSiteURL string) (string, error) {
	parsedSiteURL, err := url.Parse(strings.TrimSpace(rawSiteURL))
	if err != nil {
		return "", fmt.Errorf("invalid infisical site url: %w", err)
	}
	if !strings.EqualFold(parsedSiteURL.Scheme, "https") {
		return "", errors.New("infisical site url must use https")
	}
	if strings.TrimSpace(parsedSiteURL.Host) == "" {
		return "", errors.New("infisical site url must include a host")
	}
	if parsedSiteURL.Path != "" && parsedSiteURL.Path != "/" {
		return "", errors.New("infisical site url must not include a path; set only the host (example: https://app.infisical.com)")
	}
	if parsedSiteURL.RawQuery != "" || parsedSiteURL.Fragment != "" || parsedSiteURL.User != nil {
		return "", errors.New("infisical site url must be a plain host URL without query, fragment, or user info")
	}

	return strings.TrimRight(parsedSiteURL.Scheme+"://"+parsedSiteURL.Host, "/"), nil
}
