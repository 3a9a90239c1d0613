package migrations

import "embed"

// FS contains the embedded message store migrations.
//
//go:embed *.sql
var FS embed.FS
