package sql

import "context"

// Row is a single result row keyed by column name.
type Row map[string]any

// Pool is the connection-pool capability the query layer executes through.
// Implementations own connection checkout/return and all concurrency
// concerns; this layer treats the pool as an opaque capability and never
// retries on its behalf.
type Pool interface {
	// RunAndFetchAll executes a read statement with bound values and
	// returns every row.
	RunAndFetchAll(ctx context.Context, query string, values []any) ([]Row, error)

	// RunEditingCommand executes a mutating statement with bound values and
	// returns Success or Failure.
	RunEditingCommand(ctx context.Context, query string, values []any) int

	// IsPoolActive reports whether the pool currently holds a usable
	// connection.
	IsPoolActive() bool
}

// Cache is the optional result-cache capability consumed by the
// orchestrator. The backend owns entry lifecycle and eviction; the
// orchestrator is a pass-through consumer.
type Cache interface {
	// Get returns the cached payload for key, and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a payload under key.
	Set(ctx context.Context, key string, value []byte)

	// Invalidate drops every entry whose key starts with prefix.
	Invalidate(ctx context.Context, prefix string)
}
