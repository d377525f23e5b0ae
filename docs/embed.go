// Package docs holds the HTTP and event contracts of the fee service.
package docs

import _ "embed"

// OpenAPI is the HTTP API contract
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI is the event contract of the fee events topic
//
//go:embed asyncapi.yaml
var AsyncAPI []byte
