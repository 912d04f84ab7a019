package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/pipeline"
	"github.com/kapu/reader-sim-go/internal/report"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

// RunRequest is the first message a client sends on /ws/runs.
type RunRequest struct {
	Title      string   `json:"title" validate:"required,max=500"`
	PersonaIDs []string `json:"personaIds" validate:"omitempty,dive,required"`
	Language   string   `json:"language" validate:"omitempty,oneof=en zh"`
}

type FrameType string

const (
	FrameProgress FrameType = "progress"
	FrameEnriched FrameType = "enriched"
	FrameResult   FrameType = "result"
	FrameError    FrameType = "error"
)

type Frame struct {
	Type         FrameType             `json:"type"`
	Progress     *domain.ProgressState `json:"progress,omitempty"`
	EnrichedInfo string                `json:"enrichedInfo,omitempty"`
	Result       *report.Document      `json:"result,omitempty"`
	Error        string                `json:"error,omitempty"`
	Code         string                `json:"code,omitempty"`
}

// frameWriter serialises writes; progress can arrive from pool workers.
type frameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (fw *frameWriter) write(f Frame) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	_ = fw.conn.SetWriteDeadline(time.Now().Add(constants.ServerConfig.WriteWait))
	return fw.conn.WriteJSON(f)
}

func (fw *frameWriter) close(reason string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = fw.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(constants.ServerConfig.WriteWait))
}

func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	fw := &frameWriter{conn: conn}

	var req RunRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = fw.write(Frame{Type: FrameError, Error: "invalid run request", Code: errors.CodeValidation})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		_ = fw.write(Frame{Type: FrameError, Error: err.Error(), Code: errors.CodeValidation})
		fw.close("invalid request")
		return
	}

	cfg := s.deps.LLM
	if req.Language != "" {
		cfg.Language = domain.ParseLanguage(req.Language)
	}

	personas, err := s.deps.Catalog.Select(req.PersonaIDs, cfg.Lang())
	if err != nil {
		s.sendError(fw, err)
		fw.close("invalid request")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends again; a read error means it went away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	s.logger.Info("Run requested over WebSocket",
		zap.String("title", req.Title),
		zap.Int("personas", len(personas)),
		zap.String("language", cfg.Lang().String()),
	)

	res, err := s.deps.Runner.Run(ctx, req.Title, personas, cfg, pipeline.Callbacks{
		OnProgress: func(state domain.ProgressState) {
			_ = fw.write(Frame{Type: FrameProgress, Progress: &state})
		},
		OnEnrichedInfo: func(info string) {
			_ = fw.write(Frame{Type: FrameEnriched, EnrichedInfo: info})
		},
	})
	if err != nil {
		s.sendError(fw, err)
	} else {
		s.archive(ctx, res)
		_ = fw.write(Frame{Type: FrameResult, Result: &report.Document{Result: res, Summary: report.Summarize(res)}})
	}

	fw.close("done")
	_ = conn.Close()
	<-readerDone
}

func (s *Server) archive(ctx context.Context, res *domain.RunResult) {
	if s.deps.Archive == nil {
		return
	}
	if err := s.deps.Archive.SaveRun(ctx, res); err != nil {
		s.logger.Warn("Failed to archive run", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (s *Server) sendError(fw *frameWriter, err error) {
	code := errorCode(err)
	msg := err.Error()
	if code == errors.CodeMisconfigured {
		msg = "The LLM endpoint rejected the request. Check the API key and URL, then try again later."
	}
	s.logger.Warn("Run failed", zap.String("code", code), zap.Error(err))
	_ = fw.write(Frame{Type: FrameError, Error: msg, Code: code})
}

func errorCode(err error) string {
	var valErr *errors.ValidationError
	switch {
	case errors.Is(err, errors.ErrMisconfigured):
		return errors.CodeMisconfigured
	case errors.As(err, &valErr):
		return errors.CodeValidation
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	default:
		return errors.CodeAppError
	}
}
