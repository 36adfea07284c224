// Package migrations carries the versioned SQL schema so binaries and tests
// can apply it without a checkout on disk.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair in this directory.
//
//go:embed *.sql
var FS embed.FS
