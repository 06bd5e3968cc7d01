// Package httpadapter exposes the REST surface for textbook management
// and retrieval.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
	"github.com/tutorly/mathrag/internal/observability/metrics"
)

const maxUploadBytes = 256 << 20

type Router struct {
	ingest  ports.TextbookIngestor
	remover ports.TextbookRemover
	search  ports.SearchService
	reader  ports.TextbookReader
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	overloadWait   time.Duration
}

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	OverloadWait   time.Duration
}

func NewRouter(
	ingest ports.TextbookIngestor,
	remover ports.TextbookRemover,
	search ports.SearchService,
	reader ports.TextbookReader,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	opts RouterOptions,
) *Router {
	return &Router{
		ingest:         ingest,
		remover:        remover,
		search:         search,
		reader:         reader,
		metrics:        httpMetrics,
		logger:         logger,
		rateLimitRPS:   opts.RateLimitRPS,
		rateLimitBurst: opts.RateLimitBurst,
		maxInFlight:    opts.MaxInFlight,
		overloadWait:   opts.OverloadWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/textbooks", rt.textbooks)
	mux.HandleFunc("/v1/textbooks/", rt.textbookByID)
	mux.HandleFunc("/v1/search", rt.searchChunks)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, rt.overloadWait)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) textbooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadTextbook(w, r)
	case http.MethodGet:
		rt.listTextbooks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) uploadTextbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	tb, err := rt.ingest.Upload(
		r.Context(),
		r.FormValue("title"),
		fileHeader.Filename,
		r.FormValue("class_level"),
		file,
	)
	if err != nil {
		rt.writeFailure(w, r, "upload textbook", err)
		return
	}

	writeJSON(w, http.StatusAccepted, tb)
}

func (rt *Router) listTextbooks(w http.ResponseWriter, r *http.Request) {
	textbooks, err := rt.reader.List(r.Context())
	if err != nil {
		rt.writeFailure(w, r, "list textbooks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"textbooks": textbooks})
}

func (rt *Router) textbookByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/textbooks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "textbook id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tb, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			rt.writeFailure(w, r, "get textbook", err)
			return
		}
		writeJSON(w, http.StatusOK, tb)
	case http.MethodDelete:
		if err := rt.remover.DeleteByID(r.Context(), id); err != nil {
			rt.writeFailure(w, r, "delete textbook", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type searchRequest struct {
	Query  string `json:"query"`
	K      int    `json:"k"`
	Filter struct {
		TextbookID string `json:"textbook_id"`
		ClassLevel string `json:"class_level"`
		Chapter    int    `json:"chapter"`
		Kind       string `json:"content_kind"`
	} `json:"filter"`
}

func (rt *Router) searchChunks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	filter := domain.ChunkFilter{
		DocumentID:    req.Filter.TextbookID,
		ClassLevel:    req.Filter.ClassLevel,
		ChapterNumber: req.Filter.Chapter,
		Kind:          domain.ContentKind(req.Filter.Kind),
	}

	start := time.Now()
	results, err := rt.search.Search(r.Context(), req.Query, req.K, filter)
	if err != nil {
		rt.writeFailure(w, r, "search chunks", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch("api", "/v1/search", len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", op,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
