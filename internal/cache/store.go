// Package cache persists the page index between runs.
//
// A Store is a scoped key/value store. Pages stores the page snapshot in it,
// JSON encoded and zstd compressed.
package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Store is a durable key/value store partitioned by scope.
type Store interface {
	// Get returns the value stored under (scope, key). ok is false when absent.
	Get(ctx context.Context, scope, key string) (value []byte, ok bool, err error)
	// Set stores value under (scope, key), replacing any previous value.
	Set(ctx context.Context, scope, key string, value []byte) error
	// Delete removes (scope, key). Deleting an absent key is not an error.
	Delete(ctx context.Context, scope, key string) error
	// Close releases the store.
	Close() error
}

// ScopeWorkspace is the scope for state tied to one workspace.
const ScopeWorkspace = "workspace"

// WorkspaceScope returns the workspace scope specialised for root so several
// workspaces can share one store.
func WorkspaceScope(root string) string {
	sum := xxhash.Sum64String(filepath.ToSlash(filepath.Clean(root)))
	return fmt.Sprintf("%s:%016x", ScopeWorkspace, sum)
}
