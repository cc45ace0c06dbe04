package store

import "errors"

// Domain-specific errors for store operations. Use errors.Is() to
// check for these in calling code.
var (
	// ErrDatabase wraps any failure from the underlying PostgreSQL
	// connection (connect, query, ping).
	ErrDatabase = errors.New("store: database error")

	// ErrQueueFull names the condition of a full writer queue. Queue
	// never returns it: it drops the excess records and logs how many
	// were lost.
	ErrQueueFull = errors.New("store: queue limit reached")

	// ErrSchemaMismatch is returned by NewSchemaCreator when table_name
	// has been customized away from the default, since the bundled
	// scripts hardcode the default table name.
	ErrSchemaMismatch = errors.New("store: cannot auto-create schema with a custom table_name")
)
