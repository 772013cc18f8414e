// Package migrations embeds the versioned schema for each local backend.
package migrations

import "embed"

// FS holds sqlite/NNN_*.sql and postgres/NNN_*.sql
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
