package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

type entryFunc func(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)

// paramsFunc fills a request from the HTTP request. An error is reported
// to the caller as 400.
type paramsFunc func(r *http.Request, req *bandcamp.Request) error

// ItemsResponse is the body of every browse endpoint.
type ItemsResponse struct {
	Session string       `json:"session,omitempty"`
	Items   []model.Item `json:"items"`
}

type ChecksumResponse struct {
	Checksum string `json:"checksum"`
	Changed  bool   `json:"changed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bandcamp-catalog",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	session := r.Header.Get(SessionHeader)
	if session == "" {
		session = uuid.NewString()
	}
	s.respond(w, r, s.catalog.Search, bandcamp.Request{Session: session, Query: query})
}

// browse adapts one entry point into a handler.
func (s *Server) browse(fn entryFunc, params paramsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := bandcamp.Request{Session: r.Header.Get(SessionHeader)}
		if err := params(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respond(w, r, fn, req)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn entryFunc, req bandcamp.Request) {
	items, err := call(r.Context(), fn, req)
	if err != nil {
		s.logger.Warn("Request abandoned", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Session: req.Session, Items: items})
}

// call blocks until fn reports or ctx is done.
func call(ctx context.Context, fn entryFunc, req bandcamp.Request) ([]model.Item, error) {
	ch := make(chan []model.Item, 1)
	fn(ctx, req, func(items []model.Item) {
		select {
		case ch <- items:
		default:
		}
	})
	select {
	case items := <-ch:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	var t model.Track
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid track: "+err.Error())
		return
	}
	if t.ID == 0 && t.URL == "" && t.StreamURL == "" {
		writeError(w, http.StatusBadRequest, "track needs an id or url")
		return
	}
	s.catalog.RecordPlay(r.Context(), t)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChecksum(w http.ResponseWriter, r *http.Request) {
	changed, sum, err := s.library.NeedsRescan(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, bandcamp.ErrInvalidIdentity) || errors.Is(err, bandcamp.ErrNoIdentity) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChecksumResponse{Checksum: sum, Changed: changed})
}

func none(*http.Request, *bandcamp.Request) error { return nil }

func urlParam(r *http.Request, req *bandcamp.Request) error {
	req.URL = strings.TrimSpace(r.URL.Query().Get("url"))
	if req.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

func idParam(r *http.Request, req *bandcamp.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return errors.New("id must be a positive integer")
	}
	req.ID = id
	return nil
}

func bandParams(r *http.Request, req *bandcamp.Request) error {
	if err := idParam(r, req); err != nil {
		return err
	}
	req.URL = r.URL.Query().Get("url")
	return nil
}

func slugParam(r *http.Request, req *bandcamp.Request) error {
	req.Slug = chi.URLParam(r, "slug")
	return nil
}

func fanParams(r *http.Request, req *bandcamp.Request) error {
	if handle := chi.URLParam(r, "handle"); handle != "me" {
		req.Handle = handle
	}
	req.Section = r.URL.Query().Get("section")
	return nil
}

// pageParams reads the fan (handle or fan_id, defaulting to the configured
// account) and the paging token.
func pageParams(r *http.Request, req *bandcamp.Request) error {
	q := r.URL.Query()
	req.Handle = q.Get("handle")
	req.Token = q.Get("token")
	if raw := q.Get("fan_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return errors.New("fan_id must be a positive integer")
		}
		req.ID = id
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
