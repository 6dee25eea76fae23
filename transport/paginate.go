package transport

import (
	"context"
	"fmt"
	"strconv"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
)

const (
	DefaultPageSize    = 100
	DefaultItemsField  = "data"
	DefaultSizeParam   = "page[size]"
	DefaultNumberParam = "page[number]"
	defaultMaxPages    = 10000
)

// PageOptions describes how an endpoint pages its results. When
// CursorPointer is set the cursor found at that pointer is sent back in
// CursorParam; otherwise page numbers starting at 0 are used.
type PageOptions struct {
	ItemsField    string
	PageSize      int
	SizeParam     string
	NumberParam   string
	CursorParam   string
	CursorPointer string
	Query         map[string]string
	MaxPages      int
}

func (o PageOptions) withDefaults() PageOptions {
	if o.ItemsField == "" {
		o.ItemsField = DefaultItemsField
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.SizeParam == "" {
		o.SizeParam = DefaultSizeParam
	}
	if o.NumberParam == "" {
		o.NumberParam = DefaultNumberParam
	}
	if o.CursorPointer != "" && o.CursorParam == "" {
		o.CursorParam = "page[cursor]"
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	return o
}

// Paginated calls get until the server signals there are no more pages
// (empty page, short page or missing cursor) and returns every item.
func Paginated(ctx context.Context, get GetFunc, path string, opts PageOptions) ([]resource.Record, error) {
	opts = opts.withDefaults()

	records := make([]resource.Record, 0)
	cursor := ""
	for page := 0; page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := make(map[string]string, len(opts.Query)+2)
		for key, value := range opts.Query {
			query[key] = value
		}
		query[opts.SizeParam] = strconv.Itoa(opts.PageSize)
		if opts.CursorPointer != "" {
			if cursor != "" {
				query[opts.CursorParam] = cursor
			}
		} else {
			query[opts.NumberParam] = strconv.Itoa(page)
		}

		response, err := get(ctx, path, query)
		if err != nil {
			return nil, err
		}

		items, err := ExtractItems(response, opts.ItemsField)
		if err != nil {
			return nil, err
		}
		records = append(records, items...)

		if len(items) == 0 {
			return records, nil
		}
		if opts.CursorPointer != "" {
			next, ok := resource.LookupString(response, opts.CursorPointer)
			if !ok || next == cursor {
				return records, nil
			}
			cursor = next
			continue
		}
		if len(items) < opts.PageSize {
			return records, nil
		}
	}

	return nil, faults.NewTypedError(
		faults.TransportError,
		fmt.Sprintf("pagination of %s exceeded %d pages", path, opts.MaxPages),
		nil,
	)
}

// ExtractItems returns the object items held in field of response. A bare
// array response is accepted as the item list.
func ExtractItems(response resource.Value, field string) ([]resource.Record, error) {
	var rawItems []any
	switch typed := response.(type) {
	case nil:
		return nil, nil
	case []any:
		rawItems = typed
	case map[string]any:
		value, found := typed[field]
		if !found || value == nil {
			return nil, nil
		}
		list, ok := value.([]any)
		if !ok {
			return nil, faults.NewValidationError(fmt.Sprintf("response field %q must be an array", field), nil)
		}
		rawItems = list
	default:
		return nil, faults.NewValidationError("list response must be an array or an object", nil)
	}

	items := make([]resource.Record, 0, len(rawItems))
	for _, raw := range rawItems {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, faults.NewValidationError("list entries must be JSON objects", nil)
		}
		items = append(items, item)
	}
	return items, nil
}
