package migrations

import "embed"

// FS contains embedded SQLite migrations for auction state.
//
//go:embed *.sql
var FS embed.FS
