package common

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crmarques/orgsync/config"
)

type GlobalFlags struct {
	ConfigFile        string
	SourceAPIKey      string
	SourceAppKey      string
	SourceAPIURL      string
	DestinationAPIKey string
	DestinationAppKey string
	DestinationAPIURL string
	RetryTimeout      int
	Validate          bool
	Verbose           bool
	StateDir          string
	MaxWorkers        int
	RateLimit         float64
	Output            string
	MetricsFile       string
	CommitState       bool
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	defaults := config.Defaults()

	persistent := command.PersistentFlags()
	persistent.StringVar(&flags.ConfigFile, "config", "", "YAML config file (env "+config.FileEnvVar+")")
	persistent.StringVar(&flags.SourceAPIKey, "source-api-key", "", "source org API key (env "+config.EnvSourceAPIKey+")")
	persistent.StringVar(&flags.SourceAppKey, "source-app-key", "", "source org application key (env "+config.EnvSourceAppKey+")")
	persistent.StringVar(&flags.SourceAPIURL, "source-api-url", defaults.Source.APIURL, "source org API url (env "+config.EnvSourceAPIURL+")")
	persistent.StringVar(&flags.DestinationAPIKey, "destination-api-key", "", "destination org API key (env "+config.EnvDestinationAPIKey+")")
	persistent.StringVar(&flags.DestinationAppKey, "destination-app-key", "", "destination org application key (env "+config.EnvDestinationAppKey+")")
	persistent.StringVar(&flags.DestinationAPIURL, "destination-api-url", defaults.Destination.APIURL, "destination org API url (env "+config.EnvDestinationAPIURL+")")
	persistent.IntVar(&flags.RetryTimeout, "http-client-retry-timeout", defaults.RetryTimeoutSeconds, "seconds to keep retrying a failed request (env "+config.EnvRetryTimeout+")")
	persistent.BoolVar(&flags.Validate, "validate", defaults.Validate, "check credentials before running and fail on unresolved references")
	persistent.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	persistent.StringVar(&flags.StateDir, "state-dir", defaults.StateDir, "directory holding the resource state files")
	persistent.IntVar(&flags.MaxWorkers, "max-workers", defaults.MaxWorkers, "records processed concurrently per resource type")
	persistent.Float64Var(&flags.RateLimit, "rate-limit", 0, "requests per second per org (0 means unlimited)")
	persistent.StringVarP(&flags.Output, "output", "o", defaults.Output, "output format: text|json|yaml")
	persistent.StringVar(&flags.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	persistent.BoolVar(&flags.CommitState, "commit-state", false, "commit the state directory to a local git repository after the run")
}

func BindResourcesFlag(command *cobra.Command, resources *[]string) {
	command.Flags().StringSliceVar(resources, "resources", nil, "comma separated resource types to process (default all)")
}

// BindFilterFlag binds the repeatable --filter jq expressions.
func BindFilterFlag(command *cobra.Command, target *[]string) {
	command.Flags().StringArrayVar(target, "filter", nil, "jq expression records must satisfy, optionally scoped as <type>:<expr> (repeatable)")
}

func BindSkipFailedConnectionsFlag(command *cobra.Command, skip *bool) {
	command.Flags().BoolVar(skip, "skip-failed-resource-connections", true, "skip records whose references are not synced yet")
}

// ResolveConfig layers explicitly set flags over the config file and the
// environment, then validates the result.
func ResolveConfig(command *cobra.Command, flags *GlobalFlags, lookupEnv config.LookupEnvFunc) (config.Config, error) {
	cfg, err := config.Load(flags.ConfigFile, lookupEnv)
	if err != nil {
		return config.Config{}, err
	}

	changed := func(name string) bool {
		flag := command.Flags().Lookup(name)
		if flag == nil {
			flag = command.InheritedFlags().Lookup(name)
		}
		return flag != nil && flag.Changed
	}
	overlay := []struct {
		name  string
		apply func()
	}{
		{name: "source-api-key", apply: func() { cfg.Source.APIKey = flags.SourceAPIKey }},
		{name: "source-app-key", apply: func() { cfg.Source.AppKey = flags.SourceAppKey }},
		{name: "source-api-url", apply: func() { cfg.Source.APIURL = flags.SourceAPIURL }},
		{name: "destination-api-key", apply: func() { cfg.Destination.APIKey = flags.DestinationAPIKey }},
		{name: "destination-app-key", apply: func() { cfg.Destination.AppKey = flags.DestinationAppKey }},
		{name: "destination-api-url", apply: func() { cfg.Destination.APIURL = flags.DestinationAPIURL }},
		{name: "http-client-retry-timeout", apply: func() { cfg.RetryTimeoutSeconds = flags.RetryTimeout }},
		{name: "validate", apply: func() { cfg.Validate = flags.Validate }},
		{name: "verbose", apply: func() { cfg.Verbose = flags.Verbose }},
		{name: "state-dir", apply: func() { cfg.StateDir = flags.StateDir }},
		{name: "max-workers", apply: func() { cfg.MaxWorkers = flags.MaxWorkers }},
		{name: "rate-limit", apply: func() { cfg.RateLimit = flags.RateLimit }},
		{name: "output", apply: func() { cfg.Output = flags.Output }},
		{name: "metrics-file", apply: func() { cfg.MetricsFile = flags.MetricsFile }},
		{name: "commit-state", apply: func() { cfg.CommitState = flags.CommitState }},
	}
	for _, item := range overlay {
		if changed(item.name) {
			item.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// VisitChangedFlags lists the flags set on the command line, for debug
// logging. Values of key flags are not included.
func VisitChangedFlags(command *cobra.Command) []string {
	names := make([]string, 0)
	command.Flags().Visit(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})
	return names
}
