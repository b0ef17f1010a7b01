// Package ingest holds the value types flowing through the upload pipeline.
package ingest

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain/record"
)

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes = 25 << 20

// Upload is a raw file handed over by the caller.
type Upload struct {
	tenantID  string
	fileName  string
	content   []byte
	mediaType string
}

// NewUpload validates a raw upload. The tenant id is trimmed. Empty content
// is allowed.
func NewUpload(tenantID, fileName string, content []byte, mediaType string, maxBytes int64) (Upload, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := record.ValidateTenantID(tenantID); err != nil {
		return Upload{}, err
	}
	if err := ValidateFileName(fileName); err != nil {
		return Upload{}, err
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(content)) > maxBytes {
		return Upload{}, fmt.Errorf("file too large (max %d bytes)", maxBytes)
	}
	return Upload{
		tenantID:  tenantID,
		fileName:  fileName,
		content:   content,
		mediaType: mediaType,
	}, nil
}

// ValidateFileName rejects names that would escape the tenant prefix.
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("file name is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid file name %q", name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("file name must not contain path separators")
	}
	return nil
}

// TenantID returns the owning tenant.
func (u *Upload) TenantID() string { return u.tenantID }

// FileName returns the uploaded file name.
func (u *Upload) FileName() string { return u.fileName }

// Content returns the raw bytes.
func (u *Upload) Content() []byte { return u.content }

// MediaType returns the declared media type, possibly empty.
func (u *Upload) MediaType() string { return u.mediaType }

// Size returns the byte length of the content.
func (u *Upload) Size() int64 { return int64(len(u.content)) }

// Extracted is plain text produced by the extractor for one upload.
type Extracted struct {
	FileName  string
	Text      string
	MediaType string
	// Degraded marks placeholder text produced after a failed parse.
	Degraded bool
}
