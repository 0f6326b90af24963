// Package migrations embeds the capture terminal's SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
