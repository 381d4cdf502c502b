package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// File names checked next to the executable when PIVISION_CONFIG is unset.
	besideBinaryDotEnvFilename = ".env"
	besideBinaryJSONFilename   = "config.json"

	// configPathEnvName points at an explicit config file (.env or .json).
	configPathEnvName = "PIVISION_CONFIG"

	envPrefix = "PIVISION_"
)

// Seams for tests.
var (
	executableDir = func() (string, error) {
		executablePath, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable path: %w", err)
		}
		return filepath.Dir(executablePath), nil
	}
	getEnv = os.Getenv
)

// Load assembles Options from every layer. Precedence, lowest first:
// compiled-in defaults, config.json beside the binary, .env beside the
// binary, the PIVISION_CONFIG file, process environment.
func Load() (*Options, error) {
	programOptions := DefaultOptions()

	binaryDirectory, err := executableDir()
	if err == nil {
		jsonPath := filepath.Join(binaryDirectory, besideBinaryJSONFilename)
		if fileExists(jsonPath) {
			if err := applyConfigFile(programOptions, jsonPath); err != nil {
				return nil, err
			}
		}
		dotEnvPath := filepath.Join(binaryDirectory, besideBinaryDotEnvFilename)
		if fileExists(dotEnvPath) {
			if err := applyConfigFile(programOptions, dotEnvPath); err != nil {
				return nil, err
			}
		}
	}

	if explicitPath := strings.TrimSpace(getEnv(configPathEnvName)); explicitPath != "" {
		if err := applyConfigFile(programOptions, explicitPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnvironment(programOptions); err != nil {
		return nil, err
	}

	programOptions.Mode = strings.ToLower(strings.TrimSpace(programOptions.Mode))
	return programOptions, nil
}

// applyConfigFile merges one file into the options; the format follows the
// file extension (.json, otherwise dotenv).
func applyConfigFile(programOptions *Options, path string) error {
	fileBytes, err := os.ReadFile(path) // #nosec G304 -- config path is operator-chosen by design
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := applyJSONContent(programOptions, fileBytes); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		return nil
	}

	parsedValues, err := parseDotEnvContent(string(fileBytes))
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	applyStringValues(programOptions, parsedValues)
	return applyNumericAndBoolValues(programOptions, parsedValues, path)
}

// jsonConfigOptions models optional keys accepted from a JSON config file.
// Pointer fields keep absent keys from clobbering lower layers.
type jsonConfigOptions struct {
	User              *string `json:"user"`
	Host              *string `json:"host"`
	Port              *int    `json:"port"`
	Password          *string `json:"password"`
	PasswordSecretRef *string `json:"password_secret_ref"`
	Timeout           *int    `json:"timeout"`
	Mode              *string `json:"mode"`
	ExecReplace       *bool   `json:"exec_replace"`
	KnownHosts        *string `json:"known_hosts"`
	Insecure          *bool   `json:"insecure"`
	SSHOpts           *string `json:"ssh_opts"`
}

func applyJSONContent(programOptions *Options, fileBytes []byte) error {
	var parsed jsonConfigOptions
	if err := json.Unmarshal(fileBytes, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if parsed.User != nil {
		programOptions.User = strings.TrimSpace(*parsed.User)
	}
	if parsed.Host != nil {
		programOptions.Host = strings.TrimSpace(*parsed.Host)
	}
	if parsed.Port != nil {
		programOptions.Port = *parsed.Port
	}
	if parsed.Password != nil {
		setPassword(programOptions, *parsed.Password, parsed.PasswordSecretRef != nil)
	}
	if parsed.PasswordSecretRef != nil {
		setPasswordSecretRef(programOptions, *parsed.PasswordSecretRef, parsed.Password != nil)
	}
	if parsed.Timeout != nil {
		programOptions.TimeoutSec = *parsed.Timeout
	}
	if parsed.Mode != nil {
		programOptions.Mode = strings.TrimSpace(*parsed.Mode)
	}
	if parsed.ExecReplace != nil {
		programOptions.ExecReplace = *parsed.ExecReplace
	}
	if parsed.KnownHosts != nil {
		programOptions.KnownHosts = strings.TrimSpace(*parsed.KnownHosts)
	}
	if parsed.Insecure != nil {
		programOptions.InsecureIgnoreHostKey = *parsed.Insecure
	}
	if parsed.SSHOpts != nil {
		programOptions.SSHOptions = splitSSHOptions(*parsed.SSHOpts)
	}
	return nil
}

func applyStringValues(programOptions *Options, values map[string]string) {
	if value, ok := values["USER"]; ok {
		programOptions.User = strings.TrimSpace(value)
	}
	if value, ok := values["HOST"]; ok {
		programOptions.Host = strings.TrimSpace(value)
	}
	password, passwordSet := values["PASSWORD"]
	secretRef, secretRefSet := values["PASSWORD_SECRET_REF"]
	if passwordSet {
		setPassword(programOptions, password, secretRefSet)
	}
	if secretRefSet {
		setPasswordSecretRef(programOptions, secretRef, passwordSet)
	}
	if value, ok := values["MODE"]; ok {
		programOptions.Mode = strings.TrimSpace(value)
	}
	if value, ok := values["KNOWN_HOSTS"]; ok {
		programOptions.KnownHosts = strings.TrimSpace(value)
	}
	if value, ok := values["SSH_OPTS"]; ok {
		programOptions.SSHOptions = splitSSHOptions(value)
	}
}

func applyNumericAndBoolValues(programOptions *Options, values map[string]string, source string) error {
	if value, ok := values["PORT"]; ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid PORT %q", source, value)
		}
		programOptions.Port = port
	}
	if value, ok := values["TIMEOUT"]; ok && strings.TrimSpace(value) != "" {
		timeoutSec, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid TIMEOUT %q", source, value)
		}
		programOptions.TimeoutSec = timeoutSec
	}
	if value, ok := values["EXEC_REPLACE"]; ok && strings.TrimSpace(value) != "" {
		execReplace, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid EXEC_REPLACE %q", source, value)
		}
		programOptions.ExecReplace = execReplace
	}
	if value, ok := values["INSECURE"]; ok && strings.TrimSpace(value) != "" {
		insecure, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid INSECURE %q", source, value)
		}
		programOptions.InsecureIgnoreHostKey = insecure
	}
	return nil
}

// applyEnvironment merges PIVISION_* process environment variables, the
// highest layer.
func applyEnvironment(programOptions *Options) error {
	values := map[string]string{}
	for _, key := range []string{
		"USER", "HOST", "PORT", "PASSWORD", "PASSWORD_SECRET_REF",
		"TIMEOUT", "MODE", "EXEC_REPLACE", "KNOWN_HOSTS", "INSECURE", "SSH_OPTS",
	} {
		if value, ok := lookupEnv(envPrefix + key); ok {
			values[key] = value
		}
	}
	applyStringValues(programOptions, values)
	return applyNumericAndBoolValues(programOptions, values, "environment")
}

func lookupEnv(name string) (string, bool) {
	value := getEnv(name)
	return value, value != ""
}

// setPassword records a password from one layer. Unless the same layer also
// carries a secret reference, the reference from lower layers is cleared so
// the two credential sources never survive together across layers.
func setPassword(programOptions *Options, password string, sameLayerHasSecretRef bool) {
	programOptions.Password = strings.TrimSpace(password)
	if !sameLayerHasSecretRef {
		programOptions.PasswordSecretRef = ""
	}
}

func setPasswordSecretRef(programOptions *Options, secretRef string, sameLayerHasPassword bool) {
	programOptions.PasswordSecretRef = strings.TrimSpace(secretRef)
	if !sameLayerHasPassword {
		programOptions.Password = ""
	}
}

func splitSSHOptions(value string) []string {
	return strings.Fields(value)
}

func fileExists(path string) bool {
	fileInfo, err := os.Stat(path)
	return err == nil && !fileInfo.IsDir()
}
