package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xmlstore/backend/internal/config"
	"github.com/xmlstore/backend/internal/logging"
	"github.com/xmlstore/backend/internal/models"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrTagNotFound  = errors.New("tag not found in file")
	ErrNoAttributes = errors.New("tag not found or has no attributes")
)

// Store defines the interface for the document structure store.
type Store interface {
	// Ingest records a File named name and one Tag (plus its Attributes) per
	// element in document order. It returns the new file id.
	Ingest(ctx context.Context, name string, elements iter.Seq2[models.Element, error]) (int64, error)
	// ResolveFile finds the File used for queries against name.
	ResolveFile(ctx context.Context, name string) (*models.File, error)
	GetFile(ctx context.Context, id int64) (*models.File, error)
	// CountTags returns ErrTagNotFound instead of a zero count.
	CountTags(ctx context.Context, fileID int64, tagName string) (int64, error)
	// AttributeNames returns the distinct attribute names on every tagName
	// element of a file, in order of first appearance.
	AttributeNames(ctx context.Context, fileID int64, tagName string) ([]string, error)
	ListFiles(ctx context.Context, limit int) ([]models.FileSummary, error)
	FileStructure(ctx context.Context, fileID int64) ([]models.TagDetail, error)
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// Options configures a SQLStore.
type Options struct {
	Driver       string
	Path         string
	MaxOpenConns int

	Atomic       bool
	BatchSize    int
	PreferLatest bool

	DuckDBThreads     int
	DuckDBMemoryLimit string
}

// OptionsFromConfig maps application config onto store options.
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		Driver:            cfg.Storage.Driver,
		Path:              cfg.GetDatabasePath(),
		MaxOpenConns:      cfg.Storage.MaxOpenConns,
		Atomic:            cfg.Ingest.Atomic,
		BatchSize:         cfg.Ingest.BatchSize,
		PreferLatest:      cfg.Query.FileResolution == config.ResolveLatest,
		DuckDBThreads:     cfg.Advanced.DuckDBThreads,
		DuckDBMemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
	}
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db   *sql.DB
	opts Options
	log  zerolog.Logger
}

// Open opens (creating if needed) the database at opts.Path and initializes
// the schema. Initialization is idempotent.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}

	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := d.open(opts)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	for _, stmt := range d.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	s := &SQLStore{
		db:   db,
		opts: opts,
		log:  logging.WithComponent("storage"),
	}
	s.log.Info().
		Str("driver", opts.Driver).
		Str("path", opts.Path).
		Bool("atomic", opts.Atomic).
		Msg("database ready")
	return s, nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string {
	return s.opts.Driver
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
