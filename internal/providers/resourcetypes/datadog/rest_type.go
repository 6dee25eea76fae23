package datadog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// restType implements the contract for collections exposed as
// list/create at BasePath and read/update/delete at BasePath/{id}.
type restType struct {
	resourcetype.Base

	name        string
	config      resourcetype.Config
	destination transport.Client

	// listPath overrides BasePath for listing.
	listPath string
	// itemsField holds the list in the list response; empty means a bare
	// array.
	itemsField string
	// paginated lists with page[size]/page[number].
	paginated bool
	// keyPointer derives the stable key; defaults to the ID pointer.
	keyPointer string
	// envelope wraps payloads and unwraps responses in {"data": ...}.
	envelope bool
	// updateMethod defaults to PUT.
	updateMethod string
	// readOnly pointers are dropped from create and update payloads.
	readOnly []string
	// ignore reports source records that are not synchronized.
	ignore func(resource.Record) bool
}

func (t *restType) Name() string {
	return t.name
}

func (t *restType) Config() resourcetype.Config {
	return t.config
}

func (t *restType) FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	listPath := t.listPath
	if listPath == "" {
		listPath = t.config.BasePath
	}

	if t.paginated {
		return transport.Paginated(ctx, client.Get, listPath, transport.PageOptions{ItemsField: t.itemsField})
	}

	response, err := client.Get(ctx, listPath, nil)
	if err != nil {
		return nil, err
	}
	return transport.ExtractItems(response, t.itemsField)
}

func (t *restType) Import(record resource.Record) (string, error) {
	if t.ignore != nil && t.ignore(record) {
		return "", resourcetype.ErrSkipImport
	}

	pointer := t.keyPointer
	if pointer == "" {
		pointer = t.config.ResolvedIDPointer()
	}
	key, found := resource.LookupString(record, pointer)
	if !found {
		return "", faults.NewValidationError(fmt.Sprintf("%s record has no key at %s", t.name, pointer), nil)
	}
	return key, nil
}

func (t *restType) Create(ctx context.Context, _ string, record resource.Record) (resource.Record, error) {
	response, err := t.destination.Post(ctx, t.config.BasePath, t.payload(record))
	if err != nil {
		return nil, err
	}
	return t.responseRecord(response)
}

func (t *restType) Update(ctx context.Context, _ string, record resource.Record, current resource.Record) (resource.Record, error) {
	objectPath, err := t.objectPath(current)
	if err != nil {
		return nil, err
	}

	payload := t.payload(record)
	var response resource.Value
	switch t.updateMethod {
	case http.MethodPatch:
		if t.envelope {
			payload = envelopeWithID(payload, current, t.config)
		}
		response, err = t.destination.Patch(ctx, objectPath, payload)
	default:
		response, err = t.destination.Put(ctx, objectPath, payload)
	}
	if err != nil {
		return nil, err
	}
	return t.responseRecord(response)
}

// adopt takes over an existing destination object matched by natural key,
// updating it only when record differs outside the excluded attributes.
func (t *restType) adopt(ctx context.Context, key string, record resource.Record, existing resource.Record) (resource.Record, error) {
	if t.config.Equivalent(existing, record) {
		logging.Debug(ctx, "Adopted destination resource is up to date", "key", key)
		return existing, nil
	}
	return t.Update(ctx, key, record, existing)
}

func (t *restType) Delete(ctx context.Context, _ string, current resource.Record) error {
	objectPath, err := t.objectPath(current)
	if err != nil {
		return err
	}
	_, err = t.destination.Delete(ctx, objectPath, nil)
	return err
}

// payload strips read-only attributes and wraps the body when needed.
func (t *restType) payload(record resource.Record) resource.Value {
	body := withoutPointers(record, t.readOnly...)
	if t.envelope {
		return map[string]any{"data": body}
	}
	return body
}

func (t *restType) responseRecord(response resource.Value) (resource.Record, error) {
	if t.envelope {
		return unwrapRecord(response, "data")
	}
	return asRecord(response)
}

func (t *restType) objectPath(current resource.Record) (string, error) {
	id, found := t.config.DestinationID(current)
	if !found {
		return "", faults.NewValidationError(t.name+" destination record has no id", nil)
	}
	text, ok := resource.ScalarString(id)
	if !ok {
		return "", faults.NewValidationError(fmt.Sprintf("%s destination id %v is not a scalar", t.name, id), nil)
	}
	return strings.TrimSuffix(t.config.BasePath, "/") + "/" + url.PathEscape(text), nil
}

// envelopeWithID sets data.id to the destination ID, as JSON:API updates
// require.
func envelopeWithID(payload resource.Value, current resource.Record, config resourcetype.Config) resource.Value {
	wrapped, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	data, ok := wrapped["data"].(map[string]any)
	if !ok {
		return payload
	}
	if id, found := config.DestinationID(current); found {
		data["id"] = id
	}
	return wrapped
}
