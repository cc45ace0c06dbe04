// Package store implements the PostgreSQL-backed journal: a thin
// connection wrapper, a batching asynchronous Writer, and the
// --create schema bootstrap helper.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/journal"
)

// connectTimeout bounds the initial ping after opening a connection.
const connectTimeout = 5 * time.Second

// DB wraps a *sql.DB connected to the journal's PostgreSQL database,
// with the table name and session timezone fixed at connect time.
//
// Unlike the teacher's SQLite wrapper, DB is deliberately NOT
// reused across reconnects: Writer discards it and calls Open again,
// mirroring the original tool's connect()/close() cycle used both for
// error recovery and the periodic forced reconnect.
type DB struct {
	*sql.DB

	tableName string
}

// Open connects to PostgreSQL using cfg, sets the session timezone,
// and verifies connectivity with a ping.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	connStr := buildConnStr(cfg)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: opening connection: %w", ErrDatabase, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrDatabase, err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = config.DefaultTableName
	}

	db := &DB{DB: sqlDB, tableName: tableName}

	timezone := cfg.Timezone
	if timezone == "" {
		timezone = time.Local.String()
	}
	if _, err := sqlDB.ExecContext(ctx, fmt.Sprintf("set timezone=%s", quoteLiteral(timezone))); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: setting session timezone (%s): %w", ErrDatabase, timezone, err)
	}

	return db, nil
}

func buildConnStr(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
	)
}

// quoteLiteral wraps a SQL string literal in single quotes, doubling
// any embedded quote. Used only for the fixed, config-supplied
// timezone name, never for user-controlled message content.
func quoteLiteral(s string) string {
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// HealthCheck verifies the connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("%w: health check failed: %w", ErrDatabase, err)
	}
	return nil
}

// Store bulk-inserts records via COPY FROM STDIN inside a single
// transaction, grounded on the original's psycopg cursor.copy usage.
func (db *DB) Store(records []journal.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", ErrDatabase, err)
	}

	stmt, err := tx.Prepare(copyInStatement(db.tableName))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: preparing COPY: %w", ErrDatabase, err)
	}

	for _, r := range records {
		if _, err := stmt.Exec(r.MessageID, r.Topic, r.Text, int(r.QoS), r.Retain, r.Time); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("%w: copying row: %w", ErrDatabase, err)
		}
	}

	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		tx.Rollback()
		return fmt.Errorf("%w: flushing COPY: %w", ErrDatabase, err)
	}

	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: closing COPY statement: %w", ErrDatabase, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", ErrDatabase, err)
	}

	return nil
}

// CleanUp deletes journal rows older than olderThanDays. A
// non-positive value is a caller bug (the writer never calls CleanUp
// when clean-up is disabled), so it is not special-cased here.
func (db *DB) CleanUp(olderThanDays int) (int64, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE time < NOW() - make_interval(days => $1)", quoteIdentifier(db.tableName))

	result, err := db.Exec(stmt, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("%w: cleaning up: %w", ErrDatabase, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: reading rows affected: %w", ErrDatabase, err)
	}

	return rows, nil
}

func copyInStatement(table string) string {
	return fmt.Sprintf(
		"COPY %s (message_id, topic, text, qos, retain, time) FROM STDIN",
		quoteIdentifier(table),
	)
}

// quoteIdentifier double-quotes a SQL identifier, doubling any
// embedded double quote. table_name is operator-configured, never
// user/message-controlled, but this is still cheaper and safer than
// trusting callers to pre-sanitize it.
func quoteIdentifier(name string) string {
	escaped := ""
	for _, r := range name {
		if r == '"' {
			escaped += `""`
		} else {
			escaped += string(r)
		}
	}
	return `"` + escaped + `"`
}
