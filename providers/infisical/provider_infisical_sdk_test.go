package infisical

import (
	"errors"
	"testing"
)

type fakeSDKClient struct {
	loginErr      error
	secretValue   string
	retrieveErr   error
	loginCalls    int
	retrieveCalls int
	lastOptions   sdkRetrieveSecretOptions
}

func (client *fakeSDKClient) LoginUniversalAuth(clientID, clientSecret, organizationSlug string) error {
	client.loginCalls++
	return client.loginErr
}

func (client *fakeSDKClient) RetrieveSecret(options sdkRetrieveSecretOptions) (string, error) {
	client.retrieveCalls++
	client.lastOptions = options
	return client.secretValue, client.retrieveErr
}

func setEnvGetterForTest(t *testing.T, values map[string]string) {
	t.Helper()
	originalGetter := envGetter
	envGetter = func(key string) string {
		return values[key]
	}
	t.Cleanup(func() {
		envGetter = originalGetter
	})
}

func setSDKClientForTest(t *testing.T, client infisicalSDKClient) {
	t.Helper()
	originalFactory := newInfisicalSDKClient
	newInfisicalSDKClient = func(string) infisicalSDKClient {
		return client
	}
	t.Cleanup(func() {
		newInfisicalSDKClient = originalFactory
	})
}

func resetSecretCacheForTest(t *testing.T) {
	t.Helper()
	cacheMu.Lock()
	original := secretCache
	secretCache = map[cacheKey]string{}
	cacheMu.Unlock()
	t.Cleanup(func() {
		cacheMu.Lock()
		secretCache = original
		cacheMu.Unlock()
	})
}

func completeRuntimeEnv() map[string]string {
	return map[string]string{
		"INFISICAL_UNIVERSAL_AUTH_CLIENT_ID":     "cid",
		"INFISICAL_UNIVERSAL_AUTH_CLIENT_SECRET": "csecret",
		"INFISICAL_PROJECT_ID":                   "p1",
		"INFISICAL_ENV":                          "prod",
	}
}

func TestResolveWithSDK(t *testing.T) {
	resetSecretCacheForTest(t)
	setEnvGetterForTest(t, completeRuntimeEnv())

	client := &fakeSDKClient{secretValue: "resolved-secret"}
	setSDKClientForTest(t, client)

	value, err := resolveWithSDK(secretRefSpec{secretName: "RIG_PASSWORD"})
	if err != nil {
		t.Fatalf("resolveWithSDK() error = %v", err)
	}
	if value != "resolved-secret" {
		t.Fatalf("value = %q", value)
	}
	if client.lastOptions.secretKey != "RIG_PASSWORD" || client.lastOptions.projectID != "p1" || client.lastOptions.environment != "prod" {
		t.Fatalf("retrieve options = %+v", client.lastOptions)
	}
}

func TestResolveWithSDKCachesSecret(t *testing.T) {
	resetSecretCacheForTest(t)
	setEnvGetterForTest(t, completeRuntimeEnv())

	client := &fakeSDKClient{secretValue: "cached-secret"}
	setSDKClientForTest(t, client)

	for i := 0; i < 2; i++ {
		if _, err := resolveWithSDK(secretRefSpec{secretName: "RIG_PASSWORD"}); err != nil {
			t.Fatalf("resolveWithSDK() error = %v", err)
		}
	}

	if client.loginCalls != 1 || client.retrieveCalls != 1 {
		t.Fatalf("expected one SDK round trip, got login=%d retrieve=%d", client.loginCalls, client.retrieveCalls)
	}
}

func TestResolveWithSDKLoginFailure(t *testing.T) {
	resetSecretCacheForTest(t)
	setEnvGetterForTest(t, completeRuntimeEnv())
	setSDKClientForTest(t, &fakeSDKClient{loginErr: errors.New("bad credentials")})

	if _, err := resolveWithSDK(secretRefSpec{secretName: "RIG_PASSWORD"}); err == nil {
		t.Fatalf("expected login error")
	}
}
