// Package migrations holds the Postgres schema of the vector store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
