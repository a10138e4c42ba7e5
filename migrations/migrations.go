// Package migrations embeds the SQL schema migrations for the identity
// database.
package migrations

import "embed"

// FS holds the .up.sql migration files, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
