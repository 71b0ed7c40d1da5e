// Package migrations embeds the goose SQL migrations for the SQL registry
// backends (Postgres and SQLite).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
