package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/xmlstore/backend/internal/models"
)

// Ingest consumes elements and writes them under a new File row.
//
// With Options.Atomic the whole document is one transaction and a failure
// leaves nothing behind; the returned id is then 0. Without it the File row
// and each element commit on their own, and on failure the returned id is
// the File row that was kept.
func (s *SQLStore) Ingest(ctx context.Context, name string, elements iter.Seq2[models.Element, error]) (int64, error) {
	start := time.Now()

	var (
		fileID int64
		stats  ingestStats
		err    error
	)
	if s.opts.Atomic {
		fileID, stats, err = s.ingestAtomic(ctx, name, elements)
	} else {
		fileID, stats, err = s.ingestPerElement(ctx, name, elements)
	}

	if err != nil {
		s.log.Warn().Err(err).
			Str("file", name).
			Int64("file_id", fileID).
			Int("tags", stats.tags).
			Msg("ingest failed")
		return fileID, err
	}

	s.log.Info().
		Str("file", name).
		Int64("file_id", fileID).
		Int("tags", stats.tags).
		Int("attributes", stats.attrs).
		Dur("elapsed", time.Since(start)).
		Msg("ingest complete")
	return fileID, nil
}

type ingestStats struct {
	tags  int
	attrs int
}

func (s *SQLStore) ingestAtomic(ctx context.Context, name string, elements iter.Seq2[models.Element, error]) (int64, ingestStats, error) {
	var stats ingestStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, stats, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	fileID, err := insertFile(ctx, tx, name)
	if err != nil {
		return 0, stats, err
	}

	w, err := newTagWriter(ctx, tx, fileID, s.opts.BatchSize)
	if err != nil {
		return 0, stats, err
	}
	defer w.close()

	for el, perr := range elements {
		if perr != nil {
			return 0, w.stats, perr
		}
		if err := w.write(ctx, el); err != nil {
			return 0, w.stats, err
		}
	}
	if err := w.flush(ctx); err != nil {
		return 0, w.stats, err
	}

	if err := tx.Commit(); err != nil {
		return 0, w.stats, fmt.Errorf("commit: %w", err)
	}
	return fileID, w.stats, nil
}

func (s *SQLStore) ingestPerElement(ctx context.Context, name string, elements iter.Seq2[models.Element, error]) (int64, ingestStats, error) {
	var stats ingestStats

	fileID, err := insertFile(ctx, s.db, name)
	if err != nil {
		return 0, stats, err
	}

	for el, perr := range elements {
		if perr != nil {
			return fileID, stats, perr
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			w, err := newTagWriter(ctx, tx, fileID, s.opts.BatchSize)
			if err != nil {
				return err
			}
			defer w.close()
			if err := w.write(ctx, el); err != nil {
				return err
			}
			if err := w.flush(ctx); err != nil {
				return err
			}
			stats.tags += w.stats.tags
			stats.attrs += w.stats.attrs
			return nil
		})
		if err != nil {
			return fileID, stats, err
		}
	}
	return fileID, stats, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertFile(ctx context.Context, q queryRower, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `INSERT INTO files (name) VALUES (?) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	return id, nil
}

// tagWriter inserts one tag row per element right away (its id is needed
// for the attributes) and buffers attribute rows into multi-row inserts.
type tagWriter struct {
	tx        *sql.Tx
	fileID    int64
	batchSize int
	tagStmt   *sql.Stmt
	pending   []any // name, value, tag_id triples
	stats     ingestStats
}

func newTagWriter(ctx context.Context, tx *sql.Tx, fileID int64, batchSize int) (*tagWriter, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tags (name, file_id) VALUES (?, ?) RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("prepare tag insert: %w", err)
	}
	return &tagWriter{
		tx:        tx,
		fileID:    fileID,
		batchSize: batchSize,
		tagStmt:   stmt,
		pending:   make([]any, 0, batchSize*3),
	}, nil
}

func (w *tagWriter) write(ctx context.Context, el models.Element) error {
	var tagID int64
	if err := w.tagStmt.QueryRowContext(ctx, el.Name, w.fileID).Scan(&tagID); err != nil {
		return fmt.Errorf("insert tag %q: %w", el.Name, err)
	}
	w.stats.tags++

	for _, a := range el.Attrs {
		w.pending = append(w.pending, a.Name, a.Value, tagID)
		if len(w.pending)/3 >= w.batchSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *tagWriter) flush(ctx context.Context) error {
	rows := len(w.pending) / 3
	if rows == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO attributes (name, value, tag_id) VALUES `)
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?)")
	}

	if _, err := w.tx.ExecContext(ctx, sb.String(), w.pending...); err != nil {
		return fmt.Errorf("insert %d attributes: %w", rows, err)
	}
	w.stats.attrs += rows
	w.pending = w.pending[:0]
	return nil
}

func (w *tagWriter) close() {
	w.tagStmt.Close()
}
