package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/crmarques/orgsync/faults"
	"go.yaml.in/yaml/v3"
)

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(string) (string, bool)

// Load layers the YAML file at path (skipped when empty) and then the
// environment over Defaults. Flags are applied by the caller on top.
func Load(path string, lookupEnv LookupEnvFunc) (Config, error) {
	cfg := Defaults()

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if path == "" {
		path, _ = lookupEnv(FileEnvVar)
	}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, faults.NewValidationError(fmt.Sprintf("failed to read config file %q", path), err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return faults.NewValidationError("invalid config yaml", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookupEnv LookupEnvFunc) error {
	fields := []struct {
		name   string
		target *string
	}{
		{name: EnvSourceAPIKey, target: &cfg.Source.APIKey},
		{name: EnvSourceAppKey, target: &cfg.Source.AppKey},
		{name: EnvSourceAPIURL, target: &cfg.Source.APIURL},
		{name: EnvDestinationAPIKey, target: &cfg.Destination.APIKey},
		{name: EnvDestinationAppKey, target: &cfg.Destination.AppKey},
		{name: EnvDestinationAPIURL, target: &cfg.Destination.APIURL},
	}
	for _, item := range fields {
		if value, ok := lookupEnv(item.name); ok && value != "" {
			*item.target = value
		}
	}

	if value, ok := lookupEnv(EnvRetryTimeout); ok && value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return faults.NewValidationError(fmt.Sprintf("%s must be an integer number of seconds", EnvRetryTimeout), err)
		}
		cfg.RetryTimeoutSeconds = seconds
	}
	return nil
}

// Validate checks settings that every command depends on. Credentials are
// checked per org by ValidateOrg since not every command reaches both.
func (c Config) Validate() error {
	var errs []error
	if c.RetryTimeoutSeconds < 0 {
		errs = append(errs, faults.NewValidationError("http-client-retry-timeout must not be negative", nil))
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, faults.NewValidationError("max-workers must be at least 1", nil))
	}
	if c.RateLimit < 0 {
		errs = append(errs, faults.NewValidationError("rate-limit must not be negative", nil))
	}
	if strings.TrimSpace(c.StateDir) == "" {
		errs = append(errs, faults.NewValidationError("state-dir must not be empty", nil))
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		errs = append(errs, faults.NewValidationError(fmt.Sprintf("invalid output format %q: use text, json, or yaml", c.Output), nil))
	}
	return joinValidation(errs)
}

// ValidateOrg checks that side has credentials and a usable API URL.
func (c Config) ValidateOrg(side string) error {
	var org Org
	switch side {
	case "source":
		org = c.Source
	case "destination":
		org = c.Destination
	default:
		return faults.NewInternalError(fmt.Sprintf("unknown org %q", side), nil)
	}

	var errs []error
	if strings.TrimSpace(org.APIKey) == "" {
		errs = append(errs, faults.NewValidationError(side+" api key is required", nil))
	}
	if strings.TrimSpace(org.AppKey) == "" {
		errs = append(errs, faults.NewValidationError(side+" app key is required", nil))
	}
	parsed, err := url.Parse(org.APIURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		errs = append(errs, faults.NewValidationError(fmt.Sprintf("%s api url %q must be an absolute http(s) url", side, org.APIURL), err))
	}
	return joinValidation(errs)
}

func joinValidation(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return faults.NewValidationError("invalid configuration", errors.Join(errs...))
	}
}
