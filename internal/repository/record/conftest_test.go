package record

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/db"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hashes map[string]map[string]string

	hsetErr        error
	indexExists    bool
	createdIndex   *db.IndexDefinition
	createIndexErr error
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchInfixFn  func(ctx context.Context, q *db.InfixQuery) (*db.SearchResult, error)
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) Del(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	delete(m.hashes, key)
	return ok, nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) { return m.indexExists, nil }

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.createdIndex = def
	return m.createIndexErr
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchInfix(ctx context.Context, q *db.InfixQuery) (*db.SearchResult, error) {
	if m.searchInfixFn != nil {
		return m.searchInfixFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	repo := New(ms, Config{KeyPrefix: "ds:", Dimensions: 2, HNSW: HNSWConfig{M: 16, EFConstruct: 200}})
	repo.newID = func() string { return "rec-1" }
	return repo, ms
}

func testRecord(t *testing.T, tenant, fileName string) domrec.Record {
	t.Helper()
	rec, err := domrec.New(tenant, fileName, "quarterly revenue report q3", "text/plain", 27,
		[]float32{0.6, 0.8}, time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return rec
}
