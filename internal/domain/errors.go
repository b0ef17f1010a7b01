package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a missing or malformed required field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRecordNotFound signals a missing indexed record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrExtractionDegraded signals that text extraction fell back to placeholder text.
	ErrExtractionDegraded = errors.New("extraction degraded")
	// ErrEmbeddingUnavailable signals an embedding provider failure or timeout.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingRejected signals a provider response that retrying cannot fix
	// (bad credentials, unknown model). Always wrapped with ErrEmbeddingUnavailable.
	ErrEmbeddingRejected = errors.New("embedding request rejected")
	// ErrStoreUnavailable signals an index store backend failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrBlobUnavailable signals a blob store backend failure.
	ErrBlobUnavailable = errors.New("blob store unavailable")
	// ErrSummaryUnavailable signals a summarization provider failure.
	ErrSummaryUnavailable = errors.New("summary unavailable")
	// ErrPartialDelete signals that only one half of a file deletion succeeded.
	ErrPartialDelete = errors.New("partial delete")
)

// PartialDeleteError reports which half of a blob+record deletion is left behind.
type PartialDeleteError struct {
	BlobDeleted   bool
	RecordDeleted bool
	Err           error
}

func (e *PartialDeleteError) Error() string {
	remaining := "record"
	if !e.BlobDeleted {
		remaining = "blob"
	}
	return fmt.Sprintf("%s: %s still present: %v", ErrPartialDelete.Error(), remaining, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *PartialDeleteError) Unwrap() []error { return []error{ErrPartialDelete, e.Err} }

// Remaining names the half that must be retried: "blob" or "record".
func (e *PartialDeleteError) Remaining() string {
	if !e.BlobDeleted {
		return "blob"
	}
	return "record"
}

// NewPartialDelete creates a partial delete error.
func NewPartialDelete(blobDeleted, recordDeleted bool, cause error) error {
	return &PartialDeleteError{BlobDeleted: blobDeleted, RecordDeleted: recordDeleted, Err: cause}
}
