package files

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
)

// --- Mocks ---

type mockBlobs struct {
	objects   []file.Object
	listErr   error
	deleteErr error
	deleted   []string
	prefix    string
}

func (m *mockBlobs) List(_ context.Context, prefix string, _ int) ([]file.Object, error) {
	m.prefix = prefix
	return m.objects, m.listErr
}

func (m *mockBlobs) Delete(_ context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	return m.deleteErr
}

type mockRecords struct {
	rec       domrec.Record
	getErr    error
	deleteErr error
	deletes   int
}

func (m *mockRecords) Get(_ context.Context, _, _ string) (domrec.Record, error) {
	return m.rec, m.getErr
}

func (m *mockRecords) Delete(_ context.Context, _, _ string) error {
	m.deletes++
	return m.deleteErr
}

type mockAnalyzer struct {
	gotContent string
	err        error
}

func (m *mockAnalyzer) Analyze(_ context.Context, fileName, content string) (analysis.Analysis, error) {
	m.gotContent = content
	if m.err != nil {
		return analysis.Analysis{}, m.err
	}
	return analysis.Analysis{FileName: fileName, Summary: "short"}.WithDefaults(), nil
}

// --- Tests ---

func TestList(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	blobs := &mockBlobs{objects: []file.Object{
		{Path: "u1/a.txt", Size: 3, Modified: mod},
		{Path: "u1/b.pdf", Size: 9, Modified: mod},
	}}
	svc := New(blobs, &mockRecords{}, nil)

	got, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blobs.prefix != "u1/" {
		t.Errorf("prefix = %q", blobs.prefix)
	}
	if len(got) != 2 || got[0].Name != "a.txt" || got[1].Size != 9 {
		t.Errorf("got %+v", got)
	}
}

func TestList_Errors(t *testing.T) {
	svc := New(&mockBlobs{listErr: domain.ErrBlobUnavailable}, &mockRecords{}, nil)
	if _, err := svc.List(context.Background(), "u1"); !errors.Is(err, domain.ErrBlobUnavailable) {
		t.Errorf("expected ErrBlobUnavailable, got %v", err)
	}
	if _, err := svc.List(context.Background(), " "); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name          string
		blobErr       error
		recordErr     error
		wantNil       bool
		wantPartial   bool
		wantRemaining string
		wantIs        error
	}{
		{name: "both ok", wantNil: true},
		{name: "record already gone", recordErr: domain.ErrRecordNotFound, wantNil: true},
		{name: "blob fails", blobErr: domain.ErrBlobUnavailable, wantPartial: true, wantRemaining: "blob", wantIs: domain.ErrBlobUnavailable},
		{name: "record fails", recordErr: domain.ErrStoreUnavailable, wantPartial: true, wantRemaining: "record", wantIs: domain.ErrStoreUnavailable},
		{name: "both fail", blobErr: domain.ErrBlobUnavailable, recordErr: domain.ErrStoreUnavailable, wantIs: domain.ErrBlobUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := &mockBlobs{deleteErr: tt.blobErr}
			records := &mockRecords{deleteErr: tt.recordErr}
			err := New(blobs, records, nil).Delete(context.Background(), "u1", "a.txt")

			if len(blobs.deleted) != 1 || blobs.deleted[0] != "u1/a.txt" || records.deletes != 1 {
				t.Fatalf("both halves must be attempted: blobs=%v records=%d", blobs.deleted, records.deletes)
			}
			if tt.wantNil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var pd *domain.PartialDeleteError
			if got := errors.As(err, &pd); got != tt.wantPartial {
				t.Fatalf("partial = %v, want %v (err: %v)", got, tt.wantPartial, err)
			}
			if tt.wantPartial {
				if pd.Remaining() != tt.wantRemaining {
					t.Errorf("remaining = %q, want %q", pd.Remaining(), tt.wantRemaining)
				}
				if !errors.Is(err, domain.ErrPartialDelete) {
					t.Error("expected ErrPartialDelete in chain")
				}
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("expected %v in chain, got %v", tt.wantIs, err)
			}
		})
	}
}

func TestDelete_InvalidName(t *testing.T) {
	blobs := &mockBlobs{}
	err := New(blobs, &mockRecords{}, nil).Delete(context.Background(), "u1", "../etc")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(blobs.deleted) != 0 {
		t.Error("no deletion expected")
	}
}

func TestAnalyze(t *testing.T) {
	rec := domrec.Reconstruct("id-1", "u1", "a.txt", "u1/a.txt", "hello world", "text/plain", 11, nil, time.Time{})
	an := &mockAnalyzer{}
	svc := New(&mockBlobs{}, &mockRecords{rec: rec}, an)

	got, err := svc.Analyze(context.Background(), "u1", "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "short" || got.Category != analysis.DefaultCategory {
		t.Errorf("got %+v", got)
	}
	if an.gotContent != "hello world" {
		t.Errorf("content = %q", an.gotContent)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	svc := New(&mockBlobs{}, &mockRecords{getErr: domain.ErrRecordNotFound}, &mockAnalyzer{})
	if _, err := svc.Analyze(context.Background(), "u1", "a.txt"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	svc = New(&mockBlobs{}, &mockRecords{}, nil)
	if _, err := svc.Analyze(context.Background(), "u1", "a.txt"); !errors.Is(err, domain.ErrSummaryUnavailable) {
		t.Errorf("expected ErrSummaryUnavailable, got %v", err)
	}
}

func TestList_SkipsNestedTenantObjects(t *testing.T) {
	blobs := &mockBlobs{objects: []file.Object{
		{Path: "alice/a.txt"},
		{Path: "alice/x/report.pdf"},
	}}
	got, err := New(blobs, &mockRecords{}, nil).List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "a.txt" {
		t.Errorf("got %+v, want only a.txt", got)
	}
}

func TestInvalidTenant(t *testing.T) {
	blobs := &mockBlobs{}
	records := &mockRecords{}
	svc := New(blobs, records, &mockAnalyzer{})
	for _, tenant := range []string{"alice/x", `alice\x`, "..", ""} {
		if _, err := svc.List(context.Background(), tenant); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("List(%q): expected ErrInvalidRequest, got %v", tenant, err)
		}
		if err := svc.Delete(context.Background(), tenant, "a.txt"); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Delete(%q): expected ErrInvalidRequest, got %v", tenant, err)
		}
		if _, err := svc.Analyze(context.Background(), tenant, "a.txt"); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Analyze(%q): expected ErrInvalidRequest, got %v", tenant, err)
		}
	}
	if len(blobs.deleted) != 0 || records.deletes != 0 {
		t.Error("invalid tenant must not reach the stores")
	}
}
