package demo_data

import (
	"embed"
)

// FS provides embedded demo vector payloads (referenced by config `source.path`).
//
//go:embed *.json
var FS embed.FS
