package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xmlstore/backend/internal/config"
)

// dialect holds what differs between the supported databases: how a
// connection pool is opened and the DDL for the three tables.
type dialect interface {
	open(opts Options) (*sql.DB, error)
	schema() []string
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case config.DriverDuckDB:
		return duckDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}
}

type duckDialect struct{}

func (duckDialect) open(opts Options) (*sql.DB, error) {
	pragmas := make([]string, 0, 2)
	if opts.DuckDBThreads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.DuckDBThreads))
	}
	if opts.DuckDBMemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.DuckDBMemoryLimit))
	}

	connector, err := duckdb.NewConnector(opts.Path, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (duckDialect) schema() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS files_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS files (
			id   BIGINT PRIMARY KEY DEFAULT nextval('files_id_seq'),
			name VARCHAR
		)`,
		`CREATE SEQUENCE IF NOT EXISTS tags_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS tags (
			id      BIGINT PRIMARY KEY DEFAULT nextval('tags_id_seq'),
			name    VARCHAR,
			file_id BIGINT REFERENCES files(id)
		)`,
		`CREATE SEQUENCE IF NOT EXISTS attributes_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS attributes (
			id     BIGINT PRIMARY KEY DEFAULT nextval('attributes_id_seq'),
			name   VARCHAR,
			value  VARCHAR,
			tag_id BIGINT REFERENCES tags(id)
		)`,
	}
}

type sqliteDialect struct{}

func (sqliteDialect) open(opts Options) (*sql.DB, error) {
	dsn := opts.Path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return db, nil
}

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS files (
			id   INTEGER PRIMARY KEY,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id      INTEGER PRIMARY KEY,
			name    TEXT,
			file_id INTEGER,
			FOREIGN KEY (file_id) REFERENCES files(id)
		)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			id     INTEGER PRIMARY KEY,
			name   TEXT,
			value  TEXT,
			tag_id INTEGER,
			FOREIGN KEY (tag_id) REFERENCES tags(id)
		)`,
	}
}
