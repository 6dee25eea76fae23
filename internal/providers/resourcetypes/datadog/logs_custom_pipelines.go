package datadog

import (
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// Integration pipelines are read-only and exist in every org.
func newLogsCustomPipelines(destination transport.Client) *restType {
	return &restType{
		name:        "logs_custom_pipelines",
		destination: destination,
		readOnly:    []string{"/id", "/type", "/is_read_only"},
		ignore: func(record resource.Record) bool {
			readOnly, _ := resource.Lookup(record, "/is_read_only")
			return readOnly == true
		},
		config: resourcetype.Config{
			BasePath:           "/api/v1/logs/config/pipelines",
			ExcludedAttributes: []string{"/id", "/type", "/is_read_only"},
		},
	}
}
