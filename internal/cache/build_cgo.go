//go:build !purego

package cache

// Built with cgo by default. Use -tags purego for a pure Go binary.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver used by SQLiteStore.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"

	dsnParams = "?_journal_mode=WAL&_busy_timeout=5000"
)
