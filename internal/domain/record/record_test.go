package record

import (
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	now := time.Unix(1700000000, 0)
	vec := []float32{0.1, 0.2}

	r, err := New("u1", "notes.txt", "quarterly revenue", "text/plain", 27, vec, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "" {
		t.Errorf("ID() = %q, want empty before upsert", r.ID())
	}
	if r.StoragePath() != "u1/notes.txt" {
		t.Errorf("StoragePath() = %q", r.StoragePath())
	}
	if !r.CreatedAt().Equal(now) {
		t.Errorf("CreatedAt() = %v", r.CreatedAt())
	}

	vec[0] = 9
	if r.Vector()[0] != 0.1 {
		t.Error("New must clone the vector")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		tenant   string
		fileName string
		vec      []float32
		size     int64
	}{
		{"no tenant", "", "a.txt", []float32{1}, 0},
		{"nested tenant", "u1/x", "a.txt", []float32{1}, 0},
		{"no file", "u1", "", []float32{1}, 0},
		{"no vector", "u1", "a.txt", nil, 0},
		{"negative size", "u1", "a.txt", []float32{1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.tenant, tt.fileName, "", "", tt.size, tt.vec, time.Now()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWithID(t *testing.T) {
	r, _ := New("u1", "a.txt", "", "", 0, []float32{1}, time.Now())
	withID := r.WithID("rec-1")
	if withID.ID() != "rec-1" {
		t.Errorf("ID() = %q", withID.ID())
	}
	if r.ID() != "" {
		t.Error("WithID must not mutate the receiver")
	}
}

func TestOwnFileName(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"u1/report.pdf", "report.pdf", true},
		{"u1/x/report.pdf", "", false},
		{"u2/report.pdf", "", false},
		{"u1/", "", false},
	}
	for _, tt := range tests {
		got, ok := OwnFileName("u1", tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("OwnFileName(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidateTenantID(t *testing.T) {
	for _, id := range []string{"u1", "alice", "team-42", "a.b"} {
		if err := ValidateTenantID(id); err != nil {
			t.Errorf("ValidateTenantID(%q): unexpected error %v", id, err)
		}
	}
	for _, id := range []string{"", " u1", "alice/x", `alice\x`, ".", ".."} {
		if err := ValidateTenantID(id); err == nil {
			t.Errorf("ValidateTenantID(%q): expected error", id)
		}
	}
}
