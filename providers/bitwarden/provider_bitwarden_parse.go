package bitwarden

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func parseSecretID(secretRef string) (string, error) {
	trimmedRef := strings.TrimSpace(secretRef)

	for _, prefix := range []string{"bw://", "bws://", "bitwarden://"} {
		if len(trimmedRef) >= len(prefix) && strings.EqualFold(trimmedRef[:len(prefix)], prefix) {
			secretID := strings.TrimSpace(trimmedRef[len(prefix):])
			if secretID == "" {
				return "", errors.New("bitwarden secret ref is missing a secret identifier")
			}
			return secretID, nil
		}
	}
	return "", fmt.Errorf("invalid bitwarden secret ref %q", secretRef)
}

func parseBWSSecretOutput(commandOutput string) (string, error) {
	var response struct {
		Value string `json:"value"`
	}
	if jsonErr := json.Unmarshal([]byte(commandOutput), &response); jsonErr != nil {
		return "", fmt.Errorf("bws output was not valid JSON: %w", jsonErr)
	}

	if strings.TrimSpace(response.Value) == "" {
		return "", errors.New("bws JSON output did not include a non-empty value")
	}
	return strings.TrimSpace(response.Value), nil
}
