// Package api provides the embedded API specification.
package api

import _ "embed"

// OpenAPISpec contains the embedded OpenAPI 3.0 specification for the
// class registry HTTP API.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
