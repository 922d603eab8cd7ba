// Package migrations embeds the storefront's schema migration files.
package migrations

import "embed"

// FS holds every *.up.sql migration, applied in filename order.
//
//go:embed *.up.sql
var FS embed.FS
