package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/retry"
)

// --- Mocks ---

type mockBackend struct {
	calls     int
	failTimes int
	err       error
	block     bool
}

func (m *mockBackend) step(ctx context.Context) error {
	m.calls++
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.calls <= m.failTimes || m.failTimes < 0 {
		return m.err
	}
	return nil
}

func (m *mockBackend) EnsureSchema(ctx context.Context) error { return m.step(ctx) }

func (m *mockBackend) Upsert(ctx context.Context, _ domrec.Record) (string, error) {
	if err := m.step(ctx); err != nil {
		return "", err
	}
	return "rec-1", nil
}

func (m *mockBackend) Get(ctx context.Context, _, _ string) (domrec.Record, error) {
	return domrec.Record{}, m.step(ctx)
}

func (m *mockBackend) Exists(ctx context.Context, _, _ string) (bool, error) {
	return true, m.step(ctx)
}

func (m *mockBackend) Delete(ctx context.Context, _, _ string) error { return m.step(ctx) }

func (m *mockBackend) VectorSearch(ctx context.Context, _ []float32, _ string, _ float64, _ int) ([]result.Candidate, error) {
	if err := m.step(ctx); err != nil {
		return nil, err
	}
	return []result.Candidate{result.NewSemantic("a", 0.9, result.Record{})}, nil
}

func (m *mockBackend) LexicalSearch(ctx context.Context, _ []string, _ string) ([]result.Candidate, error) {
	if err := m.step(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func fastPolicy(retries int, timeout time.Duration) retry.Policy {
	return retry.Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Timeout:         timeout,
	}
}

// --- Tests ---

func TestStore_RetriesTransientErrors(t *testing.T) {
	mb := &mockBackend{failTimes: 2, err: errors.New("connection reset")}
	s := New(mb, fastPolicy(2, 0))

	id, err := s.Upsert(context.Background(), domrec.Record{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rec-1" {
		t.Errorf("id = %q", id)
	}
	if mb.calls != 3 {
		t.Errorf("calls = %d, want 3", mb.calls)
	}
}

func TestStore_MapsToStoreUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	mb := &mockBackend{failTimes: -1, err: cause}
	s := New(mb, fastPolicy(1, 0))

	_, err := s.VectorSearch(context.Background(), []float32{1}, "u1", 0.1, 20)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause in chain, got %v", err)
	}
	if mb.calls != 2 {
		t.Errorf("calls = %d, want 2", mb.calls)
	}
}

func TestStore_NotFoundPassesThroughWithoutRetry(t *testing.T) {
	mb := &mockBackend{failTimes: -1, err: domain.ErrRecordNotFound}
	s := New(mb, fastPolicy(3, 0))

	err := s.Delete(context.Background(), "u1", "a.txt")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		t.Error("not found must not map to store unavailable")
	}
	if mb.calls != 1 {
		t.Errorf("calls = %d, want 1", mb.calls)
	}
}

func TestStore_AttemptTimeout(t *testing.T) {
	mb := &mockBackend{block: true}
	s := New(mb, fastPolicy(0, 10*time.Millisecond))

	_, err := s.Exists(context.Background(), "u1", "a.txt")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestStore_Success(t *testing.T) {
	s := New(&mockBackend{}, fastPolicy(0, 0))

	got, err := s.VectorSearch(context.Background(), []float32{1}, "u1", 0.1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "a" {
		t.Errorf("got %+v", got)
	}
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Errorf("EnsureSchema: %v", err)
	}
}
