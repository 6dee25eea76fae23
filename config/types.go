package config

import "time"

const (
	FileEnvVar = "ORGSYNC_CONFIG"

	DefaultAPIURL              = "https://api.datadoghq.com"
	DefaultStateDir            = "resources"
	DefaultRetryTimeoutSeconds = 60
	DefaultMaxWorkers          = 10

	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Environment variables read as fallbacks for unset flags.
const (
	EnvSourceAPIKey      = "DD_SOURCE_API_KEY"
	EnvSourceAppKey      = "DD_SOURCE_APP_KEY"
	EnvSourceAPIURL      = "DD_SOURCE_API_URL"
	EnvDestinationAPIKey = "DD_DESTINATION_API_KEY"
	EnvDestinationAppKey = "DD_DESTINATION_APP_KEY"
	EnvDestinationAPIURL = "DD_DESTINATION_API_URL"
	EnvRetryTimeout      = "DD_HTTP_CLIENT_RETRY_TIMEOUT"
)

type Org struct {
	APIKey string `yaml:"api-key,omitempty"`
	AppKey string `yaml:"app-key,omitempty"`
	APIURL string `yaml:"api-url,omitempty"`
}

// Config holds the settings shared by every command. RetryTimeoutSeconds
// bounds the total retry time of one request; 0 disables retries.
type Config struct {
	Source              Org     `yaml:"source"`
	Destination         Org     `yaml:"destination"`
	StateDir            string  `yaml:"state-dir,omitempty"`
	RetryTimeoutSeconds int     `yaml:"http-client-retry-timeout"`
	Validate            bool    `yaml:"validate"`
	Verbose             bool    `yaml:"verbose,omitempty"`
	MaxWorkers          int     `yaml:"max-workers,omitempty"`
	RateLimit           float64 `yaml:"rate-limit,omitempty"`
	Output              string  `yaml:"output,omitempty"`
	MetricsFile         string  `yaml:"metrics-file,omitempty"`
	CommitState         bool    `yaml:"commit-state,omitempty"`
}

func Defaults() Config {
	return Config{
		Source:              Org{APIURL: DefaultAPIURL},
		Destination:         Org{APIURL: DefaultAPIURL},
		StateDir:            DefaultStateDir,
		RetryTimeoutSeconds: DefaultRetryTimeoutSeconds,
		Validate:            true,
		MaxWorkers:          DefaultMaxWorkers,
		Output:              OutputText,
	}
}

func (c Config) RetryTimeout() time.Duration {
	return time.Duration(c.RetryTimeoutSeconds) * time.Second
}
