// Package server exposes the layout planner over HTTP.
//
// Routes:
//
//	GET /healthz          liveness check
//	GET /plan             JSON plan for a source size (srcw, srch, exif) and a query
//	GET /diagram          the same plan drawn as SVG
//	GET /image/{key...}   a source image from the source directory, rendered through the query
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	imagelayout "github.com/menta2k/image-layout"
	"github.com/menta2k/image-layout/internal/utils"
	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/diagram"
	"github.com/menta2k/image-layout/pkg/processing"
)

const shutdownTimeout = 10 * time.Second

// Server serves plans, diagrams and rendered images
type Server struct {
	layout *imagelayout.Layout
	logger *log.Logger
	router chi.Router
}

// New builds a server around l. Images are read from the configured
// server.source_dir.
func New(l *imagelayout.Layout, logger *log.Logger) *Server {
	s := &Server{layout: l, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Get("/plan", s.handlePlan)
	r.Get("/diagram", s.handleDiagram)
	r.Get("/image/*", s.handleImage)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}

// planRequest splits the source description off a request query and
// plans the rest
func (s *Server) planRequest(r *http.Request) (*imagelayout.Report, string, error) {
	values := r.URL.Query()
	w, err := uintParam(values, "srcw", 32)
	if err != nil {
		return nil, "", err
	}
	h, err := uintParam(values, "srch", 32)
	if err != nil {
		return nil, "", err
	}
	var exif uint64
	if values.Has("exif") {
		if exif, err = uintParam(values, "exif", 8); err != nil {
			return nil, "", err
		}
		if exif > 8 {
			return nil, "", badRequest{fmt.Errorf("exif must be between 0 and 8")}
		}
	}
	values.Del("srcw")
	values.Del("srch")
	values.Del("exif")

	query := values.Encode()
	report, err := s.layout.PlanQuery(query, uint32(w), uint32(h), uint8(exif))
	return report, query, err
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	report, _, err := s.planRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	report, query, err := s.planRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	svg := diagram.RenderSVG(report.Ideal, diagram.WithPlan(report.Plan), diagram.WithTitle(query))
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if err := utils.ValidateKey(key); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg := s.layout.Config()
	out, err := s.layout.ProcessFile(r.Context(), utils.KeyPath(cfg.Server.SourceDir, key), r.URL.RawQuery)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format, quality := cfg.Output.Format, cfg.Output.Quality
	if out.Instructions.Format != "" {
		format = out.Instructions.Format
	}
	if out.Instructions.Quality != 0 {
		quality = out.Instructions.Quality
	}

	var buf bytes.Buffer
	if err := processing.Encode(&buf, out.Image, format, quality); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", processing.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

type errorResponse struct {
	Error string `json:"error"`
}

// badRequest marks errors caused by the request itself
type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, utils.ErrInvalidKey),
		errors.Is(err, constraint.ErrZeroSourceDimension),
		errors.Is(err, constraint.ErrZeroTargetDimension):
		status = http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
		err = errors.New("image not found")
	case errors.Is(err, processing.ErrUnsupportedFormat), errors.Is(err, processing.ErrNotImage):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func uintParam(values url.Values, key string, bits int) (uint64, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, badRequest{fmt.Errorf("missing %s", key)}
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, badRequest{fmt.Errorf("invalid %s %q", key, raw)}
	}
	return v, nil
}
