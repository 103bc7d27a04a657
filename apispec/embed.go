// Package apispec embeds the built-in spec resources.
package apispec

import "embed"

// FS holds the built-in specs and command schemas, one <name>.json file each.
//
//go:embed *.json
var FS embed.FS
