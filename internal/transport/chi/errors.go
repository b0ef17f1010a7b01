package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domingest "github.com/kailas-cloud/docsearch/internal/domain/ingest"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, resp ErrorResponse) bool

// errorHandlers run in order; the first match writes the response.
var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeNotFound),
	partialDeleteHandler,
	sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	sentinelHandler(domain.ErrBlobUnavailable, http.StatusServiceUnavailable, CodeBlobUnavailable),
	sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
	sentinelHandler(domain.ErrSummaryUnavailable, http.StatusBadGateway, CodeSummaryUnavailable),
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrRecordNotFound,
		domain.ErrPartialDelete,
		domain.ErrStoreUnavailable,
		domain.ErrBlobUnavailable,
		domain.ErrEmbeddingUnavailable,
		domain.ErrSummaryUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, resp ErrorResponse) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp.Code = code
		writeJSON(w, status, resp)
		return true
	}
}

// partialDeleteHandler reports which half of a file is still present.
func partialDeleteHandler(w http.ResponseWriter, err error, resp ErrorResponse) bool {
	var pd *domain.PartialDeleteError
	if !errors.As(err, &pd) {
		return false
	}
	resp.Code = CodePartialDelete
	resp.Remaining = pd.Remaining()
	writeJSON(w, http.StatusConflict, resp)
	return true
}

// handleDomainError maps err to a response. Messages are the matched
// sentinel's text, never the wrapped internals.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	resp := ErrorResponse{Message: safeDomainMessage(err)}

	var se *domingest.StageError
	if errors.As(err, &se) {
		progress := se.Stage.Progress()
		resp.FailedStage = string(se.Stage)
		resp.Progress = &progress
	}

	for _, h := range errorHandlers {
		if h(w, err, resp) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	resp.Code = CodeInternal
	writeJSON(w, http.StatusInternalServerError, resp)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
