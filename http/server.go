package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/dentdir"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Request body limits.
const (
	maxSmallBody  = 64 << 10
	maxImportBody = 32 << 20
)

// Server serves the clinic directory API.
type Server struct {
	Clinics     dentdir.ClinicService
	Credentials dentdir.CredentialService
	Ingester    dentdir.Ingester
	Logger      *slog.Logger
	Now         func() time.Time

	router chi.Router
}

// NewServer creates a Server with its routes mounted.
func NewServer(clinics dentdir.ClinicService, credentials dentdir.CredentialService, ingester dentdir.Ingester, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		Clinics:     clinics,
		Credentials: credentials,
		Ingester:    ingester,
		Logger:      logger,
		Now:         time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/clinics", s.handleListClinics)
		r.Put("/clinics", s.handleImportClinics)
		r.Get("/clinics/{id}", s.handleGetClinic)
		r.Put("/clinics/{id}/status", s.handleSetStatus)
		r.Put("/clinics/{id}/notes", s.handleSetNote)
		r.Get("/export.csv", s.handleExport)
		r.Get("/stats", s.handleStats)
		r.Post("/search", s.handleSearch)
		r.Post("/scan", s.handleScan)
		r.Put("/key", s.handleSetKey)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.Logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func(begin time.Time) {
			s.Logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(begin),
			)
		}(time.Now())
		next.ServeHTTP(ww, r)
	})
}

// ClinicList is the body of GET /api/clinics.
type ClinicList struct {
	Clinics []*dentdir.Clinic `json:"clinics"`
	Total   int               `json:"total"`
}

// filterFromQuery builds a ClinicFilter from status, city, district and q
// query parameters.
func filterFromQuery(r *http.Request) (dentdir.ClinicFilter, error) {
	q := r.URL.Query()
	var filter dentdir.ClinicFilter
	if v := q.Get("status"); v != "" {
		status, err := dentdir.ParseStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if v := q.Get("city"); v != "" {
		filter.City = &v
	}
	if v := q.Get("district"); v != "" {
		filter.District = &v
	}
	filter.Query = q.Get("q")
	return filter, nil
}

func (s *Server) handleListClinics(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	clinics, err := s.Clinics.FindClinics(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ClinicList{Clinics: clinics, Total: len(clinics)})
}

func (s *Server) handleGetClinic(w http.ResponseWriter, r *http.Request) {
	clinic, err := s.Clinics.FindClinicByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clinic)
}

// StatusRequest is the body of PUT /api/clinics/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, maxSmallBody, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	status, err := dentdir.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := s.Clinics.SetStatus(r.Context(), id, status)
	s.writeUpdated(w, r, id, ok, err)
}

// NoteRequest is the body of PUT /api/clinics/{id}/notes.
type NoteRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decodeJSON(w, r, maxSmallBody, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := s.Clinics.SetNote(r.Context(), id, req.Notes)
	s.writeUpdated(w, r, id, ok, err)
}

// writeUpdated answers an annotation request with the updated clinic.
// An unknown id leaves the store untouched and answers 404.
func (s *Server) writeUpdated(w http.ResponseWriter, r *http.Request, id string, ok bool, err error) {
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if !ok {
		writeError(w, r, s.Logger, dentdir.Errorf(dentdir.ENOTFOUND, "clinic %q not found", id))
		return
	}
	clinic, err := s.Clinics.FindClinicByID(r.Context(), id)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clinic)
}

func (s *Server) handleImportClinics(w http.ResponseWriter, r *http.Request) {
	var clinics []*dentdir.Clinic
	if err := decodeJSON(w, r, maxImportBody, &clinics); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if err := s.Clinics.ReplaceClinics(r.Context(), clinics); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	stored, err := s.Clinics.FindClinics(r.Context(), dentdir.ClinicFilter{})
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ClinicList{Clinics: stored, Total: len(stored)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	clinics, err := s.Clinics.FindClinics(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if len(clinics) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if _, err := dentdir.WriteCSV(&buf, clinics); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.Header().Set("Content-Type", dentdir.ExportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+dentdir.ExportFilename(s.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	clinics, err := s.Clinics.FindClinics(r.Context(), dentdir.ClinicFilter{})
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dentdir.Summarize(clinics))
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Location string `json:"location"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, maxSmallBody, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.streamIngestion(w, r, func(ctx context.Context, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
		return s.Ingester.Ingest(ctx, req.Location, progress)
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if force, _ := strconv.ParseBool(r.URL.Query().Get("force")); !force {
		writeError(w, r, s.Logger, dentdir.Errorf(dentdir.EINVALID, "a province scan issues one query per province; repeat with force=true"))
		return
	}
	s.streamIngestion(w, r, s.Ingester.IngestProvinces)
}

// streamIngestion runs an ingestion and streams its progress events. The
// final event is either a result or an error. Failures before the first
// progress event are answered with a plain JSON error.
func (s *Server) streamIngestion(w http.ResponseWriter, r *http.Request, ingest func(context.Context, dentdir.ProgressFunc) (*dentdir.IngestResult, error)) {
	stream := newEventStream(w)
	result, err := ingest(r.Context(), func(e dentdir.ProgressEvent) {
		if err := stream.send(EventProgress, e); err != nil {
			s.Logger.Debug("progress stream write failed", "err", err)
		}
	})

	if err != nil {
		if !stream.started {
			writeError(w, r, s.Logger, err)
			return
		}
		code := dentdir.ErrorCode(err)
		if code == dentdir.EINTERNAL {
			s.Logger.Error("ingestion failed", "err", err)
		}
		_ = stream.send(EventError, ErrorResponse{Code: code, Error: dentdir.ErrorMessage(err)})
		return
	}
	_ = stream.send(EventResult, result)
}

// KeyRequest is the body of PUT /api/key.
type KeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := decodeJSON(w, r, maxSmallBody, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if err := s.Credentials.SetAPIKey(r.Context(), req.APIKey); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
