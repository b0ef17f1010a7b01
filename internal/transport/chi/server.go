// Package chi exposes the docsearch API over HTTP with a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domingest "github.com/kailas-cloud/docsearch/internal/domain/ingest"
	"github.com/kailas-cloud/docsearch/internal/logger"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	"github.com/kailas-cloud/docsearch/internal/version"
)

// multipartOverhead is the allowance for form fields and part headers on top of the file.
const multipartOverhead = 1 << 20

// Server holds the HTTP handlers.
type Server struct {
	ingest         Ingester
	files          FileManager
	search         Searcher
	health         HealthChecker
	maxUploadBytes int64
}

// NewServer creates an HTTP API server.
func NewServer(ingest Ingester, files FileManager, search Searcher, health HealthChecker) *Server {
	return &Server{
		ingest:         ingest,
		files:          files,
		search:         search,
		health:         health,
		maxUploadBytes: domingest.DefaultMaxUploadBytes,
	}
}

// WithMaxUploadBytes overrides the upload size cap.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/files", s.UploadFile)
		r.Get("/files", s.ListFiles)
		r.Post("/files/analyze", s.AnalyzeFile)
		r.Delete("/files/{fileName}", s.DeleteFile)
		r.Post("/search", s.Search)
	})
}

// UploadFile handles POST /v1/files (multipart: file, tenant_id).
func (s *Server) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "file is required")
		return
	}
	defer func() { _ = part.Close() }()

	content, err := readPart(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Failed to read file: "+err.Error())
		return
	}

	tenantID := r.FormValue("tenant_id")
	fileName := path.Base(header.Filename)
	mediaType := header.Header.Get("Content-Type")

	log := logger.FromContext(r.Context())
	observer := func(stage domingest.Stage, progress int) {
		log.Debug("Ingest progress", zap.String("stage", string(stage)), zap.Int("progress", progress))
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.ingest.Ingest(ctx, tenantID, fileName, content, mediaType, observer)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Record:   recordToResponse(&res.Record),
		Stage:    string(res.Stage),
		Progress: res.Progress,
		Degraded: res.Degraded,
	})
}

// ListFiles handles GET /v1/files?tenant_id=.
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	infos, err := s.files.List(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items := make([]FileResponse, len(infos))
	for i, f := range infos {
		items[i] = fileToResponse(f)
	}
	writeJSON(w, http.StatusOK, FileListResponse{Items: items, Total: len(items)})
}

// DeleteFile handles DELETE /v1/files/{fileName}?tenant_id=.
func (s *Server) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if err := s.files.Delete(r.Context(), r.URL.Query().Get("tenant_id"), fileName); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzeFile handles POST /v1/files/analyze.
func (s *Server) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	res, err := s.files.Analyze(r.Context(), req.TenantID, req.FileName)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisToResponse(res))
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, req.TenantID, req.Query)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = candidateToResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: items, Total: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func readPart(f multipart.File) ([]byte, error) {
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return b, nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
