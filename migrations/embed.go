// Package migrations embeds the versioned PostgreSQL schema applied by
// infra.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
