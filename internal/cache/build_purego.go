//go:build purego

package cache

// Compiled with the purego tag:
//   CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver used by SQLiteStore.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"

	dsnParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)
