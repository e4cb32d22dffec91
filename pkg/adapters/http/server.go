// Package http exposes an engine as a template preview service.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/aretw0/zpt"
	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/config"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMaxBodyBytes bounds the JSON model accepted by POST /render.
const DefaultMaxBodyBytes = 1 << 20

// Engine defines the part of the template engine the service uses.
type Engine interface {
	Render(ctx context.Context, name string, model any, w io.Writer, opts ...zpt.RenderOption) error
	Templates(ctx context.Context) ([]string, error)
}

// Server serves renders over HTTP.
type Server struct {
	Engine  Engine
	Metrics http.Handler

	logger  *slog.Logger
	maxBody int64
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithMaxBodyBytes limits the size of render request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewHandler creates the HTTP handler for engine.
//
// Routes:
//
//	POST /render/{name}  body: JSON model; query: render option overrides
//	GET  /templates      JSON list of template names
//	GET  /health
//	GET  /metrics        when WithMetrics is given
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		logger:  logging.NewNop(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/templates", s.ListTemplates)
	r.Post("/render/*", s.Render)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorResponse is the JSON body of failed requests.
type errorResponse struct {
	Error      string `json:"error"`
	Source     string `json:"source,omitempty"`
	Statement  string `json:"statement,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Render handles POST /render/{name}.
func (s *Server) Render(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "missing template name"})
		return
	}

	model, err := s.decodeModel(w, r)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Render: invalid request body", "template", name, "error", err)
		writeError(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	override, err := optionOverrides(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := s.Engine.Render(r.Context(), name, model, &buf, override); err != nil {
		s.renderFailed(w, r, name, err)
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.ErrorContext(r.Context(), "Render response write failed", "template", name, "error", err)
	}
}

func (s *Server) decodeModel(w http.ResponseWriter, r *http.Request) (any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var model any
	if err := json.Unmarshal(body, &model); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	resp := errorResponse{Error: err.Error()}
	var rerr *domain.RenderError
	if errors.As(err, &rerr) {
		resp.Source = rerr.Source.String()
		resp.Statement = rerr.Statement
		resp.Expression = rerr.Expression
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case rerr != nil:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Render failed", "template", name, "error", err)
	} else {
		s.logger.DebugContext(r.Context(), "Render rejected", "template", name, "status", status, "error", err)
	}
	writeError(w, status, resp)
}

// renderKeys are the config keys a request may override.
var renderKeys = map[string]bool{
	"default_prefix":             true,
	"error_mode":                 true,
	"include_source_annotations": true,
	"omit_xml_declaration":       true,
	"max_macro_depth":            true,
	"keywords":                   true,
}

// optionOverrides reads render options from the query string, using the
// configuration keys ("?error_mode=marker&keywords.site=Demo").
func optionOverrides(r *http.Request) (zpt.RenderOption, error) {
	var pairs []string
	for key, values := range r.URL.Query() {
		root, _, _ := strings.Cut(key, ".")
		if !renderKeys[root] {
			return nil, fmt.Errorf("unknown render option %q", key)
		}
		for _, v := range values {
			pairs = append(pairs, key+"="+v)
		}
	}
	values, err := config.ParseOverrides(pairs)
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := cfg.Apply(values); err != nil {
		return nil, err
	}
	if _, err := (domain.RenderOptions{ErrorMode: domain.ErrorMode(cfg.ErrorMode)}).Normalize(); err != nil {
		return nil, err
	}

	return zpt.WithOptionsFunc(func(o *domain.RenderOptions) {
		if _, ok := values["default_prefix"]; ok {
			o.DefaultPrefix = cfg.DefaultPrefix
		}
		if _, ok := values["error_mode"]; ok {
			o.ErrorMode = domain.ErrorMode(cfg.ErrorMode)
		}
		if _, ok := values["include_source_annotations"]; ok {
			o.IncludeSourceAnnotations = cfg.IncludeSourceAnnotations
		}
		if _, ok := values["omit_xml_declaration"]; ok {
			o.OmitXMLDeclaration = cfg.OmitXMLDeclaration
		}
		if _, ok := values["max_macro_depth"]; ok {
			o.MaxMacroDepth = cfg.MaxMacroDepth
		}
		if len(cfg.Keywords) > 0 {
			keywords := make(map[string]any, len(o.Keywords)+len(cfg.Keywords))
			maps.Copy(keywords, o.Keywords)
			maps.Copy(keywords, cfg.Keywords)
			o.Keywords = keywords
		}
	}), nil
}

func contentType(name string) string {
	if _, ok := markup.ForFile(name).(*markup.XML); ok {
		return "application/xml; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.Templates(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "ListTemplates failed", "error", err)
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": names})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
