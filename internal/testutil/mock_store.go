// mock_store.go - In-memory storage.Store for handler tests
package testutil

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/xmlstore/backend/internal/models"
	"github.com/xmlstore/backend/internal/storage"
)

// MockStore implements storage.Store in memory. Ingestion is all-or-nothing.
type MockStore struct {
	mu     sync.RWMutex
	files  []models.File
	tags   map[int64][]models.TagDetail // file id -> tags in document order
	nextID int64
	calls  map[string]int

	// Err, when set, is returned by every data method.
	Err error
	// PingErr is returned by Ping.
	PingErr error
}

var _ storage.Store = (*MockStore)(nil)

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		tags:  make(map[int64][]models.TagDetail),
		calls: make(map[string]int),
	}
}

// Calls reports how many times a method was invoked
func (m *MockStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockStore) record(method string) {
	m.calls[method]++
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddFile stores a file directly, bypassing parsing
func (m *MockStore) AddFile(name string, elements ...models.Element) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(name, elements)
}

func (m *MockStore) add(name string, elements []models.Element) int64 {
	fileID := m.id()
	m.files = append(m.files, models.File{ID: fileID, Name: name})

	tags := make([]models.TagDetail, 0, len(elements))
	for _, el := range elements {
		tag := models.TagDetail{
			Tag:        models.Tag{ID: m.id(), Name: el.Name, FileID: fileID},
			Attributes: make([]models.Attribute, 0, len(el.Attrs)),
		}
		for _, a := range el.Attrs {
			tag.Attributes = append(tag.Attributes, models.Attribute{
				ID: m.id(), Name: a.Name, Value: a.Value, TagID: tag.ID,
			})
		}
		tags = append(tags, tag)
	}
	m.tags[fileID] = tags
	return fileID
}

func (m *MockStore) Ingest(ctx context.Context, name string, elements iter.Seq2[models.Element, error]) (int64, error) {
	m.mu.Lock()
	m.record("Ingest")
	if m.Err != nil {
		m.mu.Unlock()
		return 0, m.Err
	}
	m.mu.Unlock()

	var collected []models.Element
	for el, err := range elements {
		if err != nil {
			return 0, err
		}
		collected = append(collected, el)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(name, collected), nil
}

func (m *MockStore) ResolveFile(ctx context.Context, name string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ResolveFile")
	if m.Err != nil {
		return nil, m.Err
	}

	for _, f := range m.files {
		if f.Name == name {
			f := f
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrFileNotFound, name)
}

func (m *MockStore) GetFile(ctx context.Context, id int64) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetFile")
	if m.Err != nil {
		return nil, m.Err
	}

	for _, f := range m.files {
		if f.ID == id {
			f := f
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", storage.ErrFileNotFound, id)
}

func (m *MockStore) CountTags(ctx context.Context, fileID int64, tagName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CountTags")
	if m.Err != nil {
		return 0, m.Err
	}

	var count int64
	for _, t := range m.tags[fileID] {
		if t.Name == tagName {
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s", storage.ErrTagNotFound, tagName)
	}
	return count, nil
}

func (m *MockStore) AttributeNames(ctx context.Context, fileID int64, tagName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AttributeNames")
	if m.Err != nil {
		return nil, m.Err
	}

	seen := make(map[string]bool)
	var names []string
	for _, t := range m.tags[fileID] {
		if t.Name != tagName {
			continue
		}
		for _, a := range t.Attributes {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNoAttributes, tagName)
	}
	return names, nil
}

func (m *MockStore) ListFiles(ctx context.Context, limit int) ([]models.FileSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListFiles")
	if m.Err != nil {
		return nil, m.Err
	}

	files := make([]models.FileSummary, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, models.FileSummary{ID: f.ID, Name: f.Name, TagCount: int64(len(m.tags[f.ID]))})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID > files[j].ID })

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStore) FileStructure(ctx context.Context, fileID int64) ([]models.TagDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FileStructure")
	if m.Err != nil {
		return nil, m.Err
	}

	tags, ok := m.tags[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", storage.ErrFileNotFound, fileID)
	}
	return tags, nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockStore) Driver() string {
	return "mock"
}

func (m *MockStore) Close() error {
	return nil
}
