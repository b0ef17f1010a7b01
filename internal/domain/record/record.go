// Package record defines the indexed record aggregate: one searchable entry
// per uploaded file of a tenant.
package record

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Record is the durable index entry for one (tenant, file name) pair.
type Record struct {
	id          string
	tenantID    string
	fileName    string
	storagePath string
	content     string
	mediaType   string
	byteSize    int64
	vector      []float32
	createdAt   time.Time
}

// New validates fields of a record that has not been persisted yet.
// The id is assigned by the store on upsert.
func New(
	tenantID, fileName, content, mediaType string,
	byteSize int64, vector []float32, createdAt time.Time,
) (Record, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return Record{}, err
	}
	if fileName == "" {
		return Record{}, fmt.Errorf("file name is required")
	}
	if len(vector) == 0 {
		return Record{}, fmt.Errorf("vector is required")
	}
	if byteSize < 0 {
		return Record{}, fmt.Errorf("byte size must be non-negative")
	}
	return Record{
		tenantID:    tenantID,
		fileName:    fileName,
		storagePath: StoragePath(tenantID, fileName),
		content:     content,
		mediaType:   mediaType,
		byteSize:    byteSize,
		vector:      slices.Clone(vector),
		createdAt:   createdAt,
	}, nil
}

// Reconstruct restores a record from storage without validation.
func Reconstruct(
	id, tenantID, fileName, storagePath, content, mediaType string,
	byteSize int64, vector []float32, createdAt time.Time,
) Record {
	return Record{
		id:          id,
		tenantID:    tenantID,
		fileName:    fileName,
		storagePath: storagePath,
		content:     content,
		mediaType:   mediaType,
		byteSize:    byteSize,
		vector:      vector,
		createdAt:   createdAt,
	}
}

// ValidateTenantID rejects tenant ids that are empty or would not map to
// exactly one storage prefix. Callers trim the id first.
func ValidateTenantID(tenantID string) error {
	switch {
	case tenantID == "":
		return fmt.Errorf("tenant id is required")
	case tenantID != strings.TrimSpace(tenantID):
		return fmt.Errorf("tenant id must not have surrounding whitespace")
	case tenantID == "." || tenantID == "..":
		return fmt.Errorf("invalid tenant id %q", tenantID)
	case strings.ContainsAny(tenantID, "/\\"):
		return fmt.Errorf("tenant id must not contain path separators")
	}
	return nil
}

// StoragePath returns the blob path of a tenant's file.
func StoragePath(tenantID, fileName string) string {
	return tenantID + "/" + fileName
}

// TenantPrefix returns the blob prefix under which a tenant's files live.
func TenantPrefix(tenantID string) string {
	return tenantID + "/"
}

// OwnFileName returns the file name of a blob path that sits directly under
// the tenant prefix. Paths outside the prefix or in a nested directory are
// not the tenant's files.
func OwnFileName(tenantID, path string) (string, bool) {
	name, ok := strings.CutPrefix(path, TenantPrefix(tenantID))
	if !ok || name == "" || strings.ContainsAny(name, "/\\") {
		return "", false
	}
	return name, true
}

// WithID returns a copy of the record carrying the store-assigned id.
func (r Record) WithID(id string) Record {
	r.id = id
	return r
}

// ID returns the store-assigned identifier.
func (r *Record) ID() string { return r.id }

// TenantID returns the owning tenant.
func (r *Record) TenantID() string { return r.tenantID }

// FileName returns the uploaded file name.
func (r *Record) FileName() string { return r.fileName }

// StoragePath returns the blob path holding the raw bytes.
func (r *Record) StoragePath() string { return r.storagePath }

// Content returns the normalized text.
func (r *Record) Content() string { return r.content }

// MediaType returns the detected media type.
func (r *Record) MediaType() string { return r.mediaType }

// ByteSize returns the size of the raw upload.
func (r *Record) ByteSize() int64 { return r.byteSize }

// Vector returns the embedding.
func (r *Record) Vector() []float32 { return r.vector }

// CreatedAt returns the creation time.
func (r *Record) CreatedAt() time.Time { return r.createdAt }
