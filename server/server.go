// Package server implements the demo item service the agent's tools call.
//
// Routes:
//
//	GET    /health
//	POST   /items           create (201)
//	GET    /items           list (?q=, limit 1..100, offset >= 0)
//	GET    /items/{id}      fetch (404 when missing)
//	PUT    /items/{id}      replace
//	DELETE /items/{id}      delete (204)
//	POST   /files/upload    multipart field "file"
//	GET    /secure/secret   requires X-API-Key
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/richinex/apiagent/model"
)

// DefaultAPIKey guards /secure/secret when no key is configured.
const DefaultAPIKey = "secret123"

const apiKeyHeader = "X-API-Key"

// Server is the demo item service.
type Server struct {
	store  *Store
	apiKey string
	logger zerolog.Logger
}

// New creates a server with an empty store. An empty apiKey selects
// DefaultAPIKey.
func New(apiKey string, logger zerolog.Logger) *Server {
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	return &Server{store: NewStore(), apiKey: apiKey, logger: logger}
}

// Store exposes the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /items", s.handleCreate)
	mux.HandleFunc("GET /items", s.handleList)
	mux.HandleFunc("GET /items/{id}", s.handleGet)
	mux.HandleFunc("PUT /items/{id}", s.handleReplace)
	mux.HandleFunc("DELETE /items/{id}", s.handleDelete)
	mux.HandleFunc("POST /files/upload", s.handleUpload)
	mux.HandleFunc("GET /secure/secret", s.handleSecret)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.logRequests(mux))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("item service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("item service failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down item service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusCreated, s.store.Create(in))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), 10)
	if err != nil || limit < 1 || limit > 100 {
		s.writeError(w, http.StatusUnprocessableEntity, "limit must be an integer between 1 and 100")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "offset must be a non-negative integer")
		return
	}

	s.writeJSON(w, http.StatusOK, s.store.List(q.Get("q"), limit, offset))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, found := s.store.Get(id)
	if !found {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	in, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	item, found := s.store.Replace(id, in)
	if !found {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if !s.store.Delete(id) {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	s.writeJSON(w, http.StatusOK, model.UploadResult{Filename: header.Filename, Size: size})
}

func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(apiKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"secret": "42"})
}

// itemBody mirrors model.ItemInput with price optional so a missing price
// can be told apart from zero.
type itemBody struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Tags  []string `json:"tags"`
}

func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (model.ItemInput, bool) {
	var body itemBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return model.ItemInput{}, false
	}
	if n := utf8.RuneCountInString(body.Name); n < 1 || n > 100 {
		s.writeError(w, http.StatusUnprocessableEntity, "name must be 1 to 100 characters")
		return model.ItemInput{}, false
	}
	if body.Price == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "price is required")
		return model.ItemInput{}, false
	}
	if *body.Price < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "price must be greater than or equal to 0")
		return model.ItemInput{}, false
	}
	return model.ItemInput{Name: body.Name, Price: *body.Price, Tags: body.Tags}, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		s.writeError(w, http.StatusUnprocessableEntity, "item id must be a positive integer")
		return 0, false
	}
	return id, true
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write JSON response")
	}
}
