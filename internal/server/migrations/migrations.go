// Package migrations embeds the ledger server's PostgreSQL schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
