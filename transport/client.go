package transport

import (
	"context"

	"github.com/crmarques/orgsync/resource"
)

// Client issues authenticated requests against exactly one org.
type Client interface {
	Get(ctx context.Context, path string, query map[string]string) (resource.Value, error)
	Post(ctx context.Context, path string, body resource.Value) (resource.Value, error)
	Patch(ctx context.Context, path string, body resource.Value) (resource.Value, error)
	Put(ctx context.Context, path string, body resource.Value) (resource.Value, error)
	Delete(ctx context.Context, path string, body resource.Value) (resource.Value, error)
	Host() string
}

// Validator is implemented by clients able to check their credentials.
type Validator interface {
	Validate(ctx context.Context) error
}

type GetFunc func(ctx context.Context, path string, query map[string]string) (resource.Value, error)
