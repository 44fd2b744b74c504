// Package api exposes the HTTP interface for the import service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/config"
	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/metrics"
)

const serviceName = "qnote-auto-import"

// Runner executes a crawl synchronously. *scraper.Scraper satisfies it.
type Runner interface {
	Crawl(ctx context.Context, req crawler.CrawlRequest) ([]crawler.Book, error)
}

// Enqueuer schedules background jobs. *dispatcher.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, item crawler.QueueItem) error
}

// Server wires HTTP handlers to the scraper, dispatcher, and job store.
type Server struct {
	router   chi.Router
	runner   Runner
	enqueuer Enqueuer
	jobStore crawler.JobStore
	idGen    crawler.IDGenerator
	clock    crawler.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner Runner,
	enqueuer Enqueuer,
	jobStore crawler.JobStore,
	idGen crawler.IDGenerator,
	clock crawler.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:   runner,
		enqueuer: enqueuer,
		jobStore: jobStore,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/", s.root)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// The sync crawl and the stream run as long as the crawl needs.
		r.Post("/crawl", s.crawl)
		r.Get("/crawl_stream", s.crawlStream)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(60 * time.Second))
			r.Post("/crawl_start", s.crawlStart)
			r.Get("/crawl_status", s.crawlStatus)
			r.Get("/crawl_result", s.crawlResult)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

type crawlRequest struct {
	NumBooks int  `json:"num_books"`
	Short    bool `json:"short"`
}

// crawl runs the whole pipeline inside the request, blocking until the
// crawl completes.
func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	req := crawlRequest{NumBooks: 2}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	books, err := s.runner.Crawl(r.Context(), s.toCrawlRequest(req.NumBooks, req.Short, 0))
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilBooks(books))
}

type streamEvent struct {
	Type  string        `json:"type"`
	Book  *crawler.Book `json:"book,omitempty"`
	Error string        `json:"error,omitempty"`
}

// crawlStream pushes one server-sent event per completed book.
func (s *Server) crawlStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	numBooks := queryInt(r, "num_books", 2)
	short := queryBool(r, "short")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	s.writeEvent(w, flusher, streamEvent{Type: "ready"})

	ctx := r.Context()
	bookCh := make(chan crawler.Book, 16)
	errCh := make(chan error, 1)

	req := s.toCrawlRequest(numBooks, short, 0)
	req.OnBook = func(book crawler.Book, _, _ int) {
		select {
		case bookCh <- book:
		case <-ctx.Done():
		}
	}
	go func() {
		_, err := s.runner.Crawl(ctx, req)
		close(bookCh)
		errCh <- err
	}()

	for book := range bookCh {
		b := book
		s.writeEvent(w, flusher, streamEvent{Type: "book", Book: &b})
	}
	if err := <-errCh; err != nil {
		s.writeEvent(w, flusher, streamEvent{Type: "error", Error: err.Error()})
		return
	}
	s.writeEvent(w, flusher, streamEvent{Type: "done"})
}

func (s *Server) writeEvent(w http.ResponseWriter, flusher http.Flusher, evt streamEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("marshal stream event failed", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		s.logger.Debug("stream write failed", zap.Error(err))
		return
	}
	flusher.Flush()
}

type crawlStartRequest struct {
	NumBooks    int    `json:"num_books"`
	NumChapters int    `json:"num_chapters"`
	CrawlMode   string `json:"crawl_mode"`
}

// crawlStart creates the job record and schedules background
// execution, returning the job ID immediately.
func (s *Server) crawlStart(w http.ResponseWriter, r *http.Request) {
	req := crawlStartRequest{NumBooks: 2}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate job id: %v", err))
		return
	}
	job := crawler.Job{
		ID:        jobID,
		Status:    crawler.JobStatusPending,
		Submitted: s.clock.Now(),
	}
	if err := s.jobStore.CreateJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("create job: %v", err))
		return
	}

	mode := crawler.ParseMode(req.CrawlMode)
	item := crawler.QueueItem{
		JobID:     jobID,
		Request:   s.toModeRequest(req.NumBooks, mode, req.NumChapters),
		Submitted: s.clock.Now().Unix(),
	}
	queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.enqueuer.Enqueue(queueCtx, item); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("enqueue job: %v", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) crawlStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobStore.GetJob(r.Context(), r.URL.Query().Get("job_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   job.Status,
		"progress": job.Progress,
		"error":    job.ErrorText,
	})
}

// crawlResult yields the book list only once the job is done; anything
// earlier is indistinguishable from an unknown job.
func (s *Server) crawlResult(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobStore.GetJob(r.Context(), r.URL.Query().Get("job_id"))
	if err != nil || job.Status != crawler.JobStatusDone {
		writeError(w, http.StatusNotFound, "result not available")
		return
	}
	writeJSON(w, http.StatusOK, nonNilBooks(job.Result))
}

func (s *Server) toCrawlRequest(numBooks int, short bool, numChapters int) crawler.CrawlRequest {
	mode := crawler.ModeLong
	if short {
		mode = crawler.ModeShort
	}
	return s.toModeRequest(numBooks, mode, numChapters)
}

func (s *Server) toModeRequest(numBooks int, mode crawler.Mode, numChapters int) crawler.CrawlRequest {
	return crawler.CrawlRequest{
		NumBooks: numBooks,
		Mode:     mode,
		Chapters: s.cfg.ChapterPolicyFor(mode, numChapters),
	}
}

func (s *Server) writeCrawlError(w http.ResponseWriter, err error) {
	if errors.Is(err, crawler.ErrHomepageFetch) {
		writeError(w, http.StatusBadGateway, crawler.ErrHomepageFetch.Error())
		return
	}
	s.logger.Error("crawl failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "crawl failed")
}

func nonNilBooks(books []crawler.Book) []crawler.Book {
	if books == nil {
		return []crawler.Book{}
	}
	return books
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "True":
		return true
	default:
		return false
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// The import frontend runs on a different origin, so every response
// carries permissive CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
