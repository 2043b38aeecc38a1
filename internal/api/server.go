package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/processor"
	"github.com/MikeSquared-Agency/rapport/internal/store"
)

// MaxUploadBytes caps the size of an uploaded export.
const MaxUploadBytes = 32 << 20

// Importer runs imports. *processor.Processor satisfies it.
type Importer interface {
	Import(ctx context.Context, req processor.Request) (*processor.Outcome, error)
}

// ImportReader looks up stored imports. *store.Store satisfies it.
type ImportReader interface {
	GetImport(ctx context.Context, id uuid.UUID) (*store.ImportRow, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	token    string
	importer Importer
	imports  ImportReader
	logger   *slog.Logger
	started  time.Time
}

// NewServer wires the HTTP routes. imports may be nil when no database is
// configured; the lookup route then answers 503.
func NewServer(port int, token string, importer Importer, imports ImportReader, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		token:    token,
		importer: importer,
		imports:  imports,
		logger:   logger,
		started:  time.Now(),
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/rapport/status", s.status)
		r.Post("/imports", s.createImport)
		r.Get("/imports/{id}", s.getImport)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// authenticate requires a bearer token when one is configured.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "rapport",
		"status":         "ready",
		"storage":        s.imports != nil,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	relID, err := uuid.Parse(q.Get("relationship_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "relationship_id must be a uuid")
		return
	}
	var owner uuid.UUID
	if v := q.Get("owner_uuid"); v != "" {
		if owner, err = uuid.Parse(v); err != nil {
			writeError(w, http.StatusBadRequest, "owner_uuid must be a uuid")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "export too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	out, err := s.importer.Import(r.Context(), processor.Request{
		RelationshipID: relID,
		OwnerUUID:      owner,
		Source:         processor.SourceAPI,
		Export: chatlog.RawExport{
			Content:    string(body),
			FormatHint: q.Get("format"),
			Contact:    q.Get("contact"),
		},
	})
	switch {
	case errors.Is(err, processor.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("import failed", "relationship_id", relID, "error", err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	switch {
	case out.Duplicate:
		writeJSON(w, http.StatusConflict, map[string]any{"status": "duplicate", "duplicate": true})
	case !out.Report.Imported():
		writeJSON(w, http.StatusUnprocessableEntity, out)
	default:
		writeJSON(w, http.StatusCreated, out)
	}
}

func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	if s.imports == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a uuid")
		return
	}

	row, err := s.imports.GetImport(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "import not found")
		return
	case err != nil:
		s.logger.Error("get import failed", "import_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
