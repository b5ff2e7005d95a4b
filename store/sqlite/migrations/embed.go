// Package migrations embeds the SQL migration files applied by goose when the
// SQLite store opens.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
