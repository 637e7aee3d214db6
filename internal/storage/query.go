package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xmlstore/backend/internal/models"
)

// ResolveFile finds a File by exact name. File names are not unique; the
// lowest id wins unless PreferLatest is set.
func (s *SQLStore) ResolveFile(ctx context.Context, name string) (*models.File, error) {
	order := "ASC"
	if s.opts.PreferLatest {
		order = "DESC"
	}

	f := &models.File{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM files WHERE name = ? ORDER BY id `+order+` LIMIT 1`, name,
	).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	return f, nil
}

// GetFile retrieves a File by id.
func (s *SQLStore) GetFile(ctx context.Context, id int64) (*models.File, error) {
	f := &models.File{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM files WHERE id = ?`, id).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrFileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// CountTags counts tagName elements recorded for a file.
func (s *SQLStore) CountTags(ctx context.Context, fileID int64, tagName string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE file_id = ? AND name = ?`, fileID, tagName,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTagNotFound, tagName)
	}
	return count, nil
}

// AttributeNames lists distinct attribute names across all tagName elements
// of a file.
func (s *SQLStore) AttributeNames(ctx context.Context, fileID int64, tagName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.name
		FROM attributes a
		JOIN tags t ON a.tag_id = t.id
		WHERE t.file_id = ? AND t.name = ?
		GROUP BY a.name
		ORDER BY MIN(a.id)
	`, fileID, tagName)
	if err != nil {
		return nil, fmt.Errorf("query attribute names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan attribute name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute names: %w", err)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAttributes, tagName)
	}
	return names, nil
}

// ListFiles returns the most recent files with their tag counts.
func (s *SQLStore) ListFiles(ctx context.Context, limit int) ([]models.FileSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.name, COUNT(t.id)
		FROM files f
		LEFT JOIN tags t ON t.file_id = f.id
		GROUP BY f.id, f.name
		ORDER BY f.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]models.FileSummary, 0)
	for rows.Next() {
		var f models.FileSummary
		if err := rows.Scan(&f.ID, &f.Name, &f.TagCount); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileStructure returns every tag of a file in document order, each with
// its attributes.
func (s *SQLStore) FileStructure(ctx context.Context, fileID int64) ([]models.TagDetail, error) {
	if _, err := s.GetFile(ctx, fileID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, a.id, a.name, a.value
		FROM tags t
		LEFT JOIN attributes a ON a.tag_id = t.id
		WHERE t.file_id = ?
		ORDER BY t.id, a.id
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query structure: %w", err)
	}
	defer rows.Close()

	tags := make([]models.TagDetail, 0)
	for rows.Next() {
		var (
			tagID     int64
			tagName   string
			attrID    sql.NullInt64
			attrName  sql.NullString
			attrValue sql.NullString
		)
		if err := rows.Scan(&tagID, &tagName, &attrID, &attrName, &attrValue); err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}

		if len(tags) == 0 || tags[len(tags)-1].ID != tagID {
			tags = append(tags, models.TagDetail{
				Tag:        models.Tag{ID: tagID, Name: tagName, FileID: fileID},
				Attributes: make([]models.Attribute, 0),
			})
		}
		if attrID.Valid {
			last := &tags[len(tags)-1]
			last.Attributes = append(last.Attributes, models.Attribute{
				ID:    attrID.Int64,
				Name:  attrName.String,
				Value: attrValue.String,
				TagID: tagID,
			})
		}
	}
	return tags, rows.Err()
}
