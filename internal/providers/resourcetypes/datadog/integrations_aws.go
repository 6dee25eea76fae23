package datadog

import (
	"context"
	"net/url"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// integrationsAWS are addressed by account_id and role_name query
// parameters instead of a path ID.
type integrationsAWS struct {
	*restType
}

func newIntegrationsAWS(destination transport.Client) *integrationsAWS {
	return &integrationsAWS{
		restType: &restType{
			name:        "integrations_aws",
			destination: destination,
			itemsField:  "accounts",
			readOnly:    []string{"/external_id", "/errors"},
			config: resourcetype.Config{
				BasePath:           "/api/v1/integration/aws",
				ExcludedAttributes: []string{"/external_id", "/errors"},
				IDPointer:          "/account_id",
			},
		},
	}
}

// Create keeps the external_id the destination org generated for the
// account's trust policy.
func (t *integrationsAWS) Create(ctx context.Context, _ string, record resource.Record) (resource.Record, error) {
	response, err := t.destination.Post(ctx, t.config.BasePath, t.payload(record))
	if err != nil {
		return nil, err
	}

	stored := withoutPointers(record, t.readOnly...)
	if object, ok := response.(map[string]any); ok {
		if externalID, found := object["external_id"]; found {
			stored["external_id"] = externalID
		}
	}
	return stored, nil
}

func (t *integrationsAWS) Update(ctx context.Context, _ string, record resource.Record, current resource.Record) (resource.Record, error) {
	query, err := t.accountQuery(current)
	if err != nil {
		return nil, err
	}
	if _, err := t.destination.Put(ctx, t.config.BasePath+"?"+query, t.payload(record)); err != nil {
		return nil, err
	}

	stored := withoutPointers(record, t.readOnly...)
	if externalID, found := current["external_id"]; found {
		stored["external_id"] = externalID
	}
	return stored, nil
}

func (t *integrationsAWS) Delete(ctx context.Context, _ string, current resource.Record) error {
	body := map[string]any{
		"account_id": stringAt(current, "/account_id"),
		"role_name":  stringAt(current, "/role_name"),
	}
	_, err := t.destination.Delete(ctx, t.config.BasePath, body)
	return err
}

func (t *integrationsAWS) accountQuery(current resource.Record) (string, error) {
	accountID := stringAt(current, "/account_id")
	roleName := stringAt(current, "/role_name")
	if accountID == "" || roleName == "" {
		return "", faults.NewValidationError("aws integration destination record has no account_id or role_name", nil)
	}
	return url.Values{"account_id": {accountID}, "role_name": {roleName}}.Encode(), nil
}
