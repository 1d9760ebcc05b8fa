// Package migrations holds the service's SQL schema.
package migrations

import "embed"

// FS contains every *.up.sql file, applied in name order.
//
//go:embed *.up.sql
var FS embed.FS
