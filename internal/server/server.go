// Package server exposes the pipeline over HTTP and a WebSocket progress
// stream.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/persona"
	"github.com/kapu/reader-sim-go/internal/pipeline"
	"github.com/kapu/reader-sim-go/internal/service/archive"
)

// Runner is the part of pipeline.Runner the server drives.
type Runner interface {
	Run(ctx context.Context, title string, personas []domain.Persona, cfg domain.LLMConfig, cb pipeline.Callbacks) (*domain.RunResult, error)
}

// Archive stores finished runs. Optional.
type Archive interface {
	SaveRun(ctx context.Context, res *domain.RunResult) error
	ListRuns(ctx context.Context, limit int) ([]archive.RunSummary, error)
}

type Dependencies struct {
	Runner  Runner
	Catalog *persona.Catalog
	LLM     domain.LLMConfig
	Archive Archive
}

type Server struct {
	deps     Dependencies
	logger   *zap.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func New(deps Dependencies, logger *zap.Logger) *Server {
	return &Server{
		deps:     deps,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/personas", s.handlePersonas)
	mux.HandleFunc("GET /ws/runs", s.handleRunStream)
	if s.deps.Archive != nil {
		mux.HandleFunc("GET /api/runs", s.handleRuns)
	}
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.ServerConfig.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerConfig.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"model":    s.deps.LLM.Model,
		"personas": s.deps.Catalog.Len(),
		"time":     time.Now().UTC(),
	})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang := s.deps.LLM.Lang()
	if raw := q.Get("lang"); raw != "" {
		lang = domain.ParseLanguage(raw)
	}

	var personas []domain.Persona
	if term := q.Get("q"); term != "" {
		personas = s.deps.Catalog.Search(term, lang)
	} else {
		personas = s.deps.Catalog.ByCategory(q.Get("category"), lang)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"personas":   personas,
		"categories": s.deps.Catalog.Categories(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.deps.Archive.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list archived runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
