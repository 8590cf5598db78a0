// Package docs menyimpan dokumen OpenAPI yang disajikan di /api-docs.
package docs

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte
