package common

import (
	"context"

	"github.com/crmarques/orgsync/config"
)

type runIDKey struct{}

type configKey struct{}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}

// WithConfig stores the resolved configuration of the running command.
func WithConfig(ctx context.Context, cfg config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func ConfigFrom(ctx context.Context) (config.Config, error) {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
			return cfg, nil
		}
	}
	return config.Config{}, ValidationError("configuration is not resolved", nil)
}
