// Package store persists journal.Record values to PostgreSQL.
//
// DB is a thin connection wrapper; Writer runs a background batching
// loop on top of it with a bounded queue, periodic reconnects, and
// interval-based clean-up of old rows; SchemaCreator runs the bundled
// SQL scripts for first-time setup (the --create CLI flag).
package store
