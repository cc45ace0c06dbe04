package store

import (
	"embed"
	"fmt"
	"strings"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
)

//go:embed sql/*.sql
var embeddedScripts embed.FS

// SchemaCreator runs the bundled table/convert/trigger scripts against
// a fresh database, implementing the --create CLI flag.
type SchemaCreator struct {
	db *DB
}

// NewSchemaCreator connects to the database for schema creation. The
// scripts' statements run through db.Exec outside any explicit
// transaction, so each statement commits on its own.
func NewSchemaCreator(cfg config.DatabaseConfig) (*SchemaCreator, error) {
	if cfg.TableName != "" && cfg.TableName != config.DefaultTableName {
		return nil, fmt.Errorf(
			"%w: configured table_name %q, scripts hardcode %q; run the sql/ scripts manually instead",
			ErrSchemaMismatch, cfg.TableName, config.DefaultTableName,
		)
	}

	cfg.TableName = config.DefaultTableName
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	return &SchemaCreator{db: db}, nil
}

// Close releases the schema creator's connection.
func (s *SchemaCreator) Close() error {
	return s.db.Close()
}

// CreateSchema runs table.sql, convert.sql, and trigger.sql in order.
func (s *SchemaCreator) CreateSchema() error {
	if err := s.runScript("table.sql", true); err != nil {
		return fmt.Errorf("creating table and indices: %w", err)
	}

	if err := s.runScript("convert.sql", false); err != nil {
		return fmt.Errorf("creating json convert function: %w", err)
	}

	if err := s.runScript("trigger.sql", false); err != nil {
		return fmt.Errorf("creating json convert trigger: %w", err)
	}

	return nil
}

// runScript executes a bundled script, either as a sequence of
// `;`-terminated statements (splitStatements) or as one single
// statement (for function/trigger bodies whose own `;`s would
// otherwise be mis-split).
func (s *SchemaCreator) runScript(name string, split bool) error {
	raw, err := embeddedScripts.ReadFile("sql/" + name)
	if err != nil {
		return fmt.Errorf("reading embedded script %s: %w", name, err)
	}

	var statements []string
	if split {
		statements = splitStatements(string(raw))
	} else {
		statements = []string{string(raw)}
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing statement from %s: %w\n%s", name, err, stmt)
		}
	}

	return nil
}

// splitStatements parses a SQL script into `;`-terminated statements,
// stripping blank lines and full-line `--` comments. Grounded on the
// original tool's line-oriented DatabaseUtils._parse_lines_into_commands:
// comments and blank lines are dropped, and a statement accumulates
// lines until one ends in a semicolon.
func splitStatements(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var statements []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "--") {
			continue
		}

		right := strings.TrimRight(line, " \t")
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(right)

		if strings.HasSuffix(right, ";") {
			flush()
		}
	}
	flush()

	return statements
}
