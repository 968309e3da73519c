// Package migrations holds the guestbook schema as goose SQL files.
package migrations

import "embed"

// FS is the migration source for goose.NewProvider.
//
//go:embed *.sql
var FS embed.FS
