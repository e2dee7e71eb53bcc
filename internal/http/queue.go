package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelqueue/reelqueue/internal/domain"
	"github.com/reelqueue/reelqueue/internal/metadata"
	"github.com/reelqueue/reelqueue/internal/queue"
	"github.com/reelqueue/reelqueue/internal/tablestore"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type draftRequest struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Runtime     string `json:"runtime"`
	AddedBy     string `json:"addedBy"`
	Priority    string `json:"priority"`
	PosterURL   string `json:"posterUrl"`
	TmdbID      string `json:"tmdbId"`
	ReleaseYear string `json:"releaseYear"`
}

type entryResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre,omitempty"`
	Runtime     string    `json:"runtime,omitempty"`
	AddedBy     string    `json:"addedBy,omitempty"`
	Priority    string    `json:"priority"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	TmdbID      string    `json:"tmdbId,omitempty"`
	ReleaseYear string    `json:"releaseYear,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type queueResponse struct {
	Current  *entryResponse  `json:"current"`
	Upcoming []entryResponse `json:"upcoming"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
}

type searchListResponse struct {
	Results []candidateResponse `json:"results"`
}

type candidateResponse struct {
	ExternalID  string `json:"externalId"`
	Title       string `json:"title"`
	PosterURL   string `json:"posterUrl,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	ReleaseYear string `json:"releaseYear,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

type detailsResponse struct {
	Runtime int      `json:"runtime"`
	Genres  []string `json:"genres"`
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.queueView())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Reload(r.Context()); err != nil {
		s.respondQueueError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.queueView())
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	entry, err := s.queue.Add(r.Context(), domain.DraftEntry{
		Title:       req.Title,
		Genre:       req.Genre,
		Runtime:     req.Runtime,
		AddedBy:     req.AddedBy,
		Priority:    req.Priority,
		PosterURL:   req.PosterURL,
		TmdbID:      req.TmdbID,
		ReleaseYear: req.ReleaseYear,
	})
	if err != nil {
		if errors.Is(err, queue.ErrEmptyTitle) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required")
			return
		}
		s.respondQueueError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id")
		return
	}

	if err := s.queue.Remove(r.Context(), id); err != nil {
		s.respondQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	candidates := s.search.SearchByTitle(r.Context(), query)

	results := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, candidateResponse{
			ExternalID:  c.ExternalID,
			Title:       c.Title,
			PosterURL:   metadata.PosterURL(c.PosterPath),
			ReleaseDate: c.ReleaseDate,
			ReleaseYear: c.ReleaseYear(),
			Overview:    c.Overview,
		})
	}
	s.respondJSON(w, http.StatusOK, searchListResponse{Results: results})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "missing id parameter")
		return
	}

	details := s.search.FetchDetails(r.Context(), id)
	if details == nil {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}
	s.respondJSON(w, http.StatusOK, detailsResponse{
		Runtime: details.Runtime,
		Genres:  details.Genres,
	})
}

// queueView derives the current/upcoming split from the ordered list on every
// read.
func (s *Server) queueView() queueResponse {
	view := queueResponse{
		Upcoming: make([]entryResponse, 0),
		Loading:  s.queue.Loading(),
		Error:    s.queue.LastError(),
	}
	if current, ok := s.queue.Current(); ok {
		resp := toEntryResponse(current)
		view.Current = &resp
	}
	for _, entry := range s.queue.Upcoming() {
		view.Upcoming = append(view.Upcoming, toEntryResponse(entry))
	}
	return view
}

func toEntryResponse(entry domain.MovieEntry) entryResponse {
	return entryResponse{
		ID:          entry.ID,
		Title:       entry.Title,
		Genre:       entry.Genre,
		Runtime:     entry.Runtime,
		AddedBy:     entry.AddedBy,
		Priority:    string(domain.NormalizePriority(entry.Priority)),
		PosterURL:   entry.PosterURL,
		TmdbID:      entry.TmdbID,
		ReleaseYear: entry.ReleaseYear,
		CreatedAt:   entry.CreatedAt,
	}
}

func (s *Server) respondQueueError(w http.ResponseWriter, err error) {
	switch tablestore.KindOf(err) {
	case tablestore.KindConfigMissing:
		s.respondError(w, http.StatusServiceUnavailable, "CONFIG_MISSING", "Table store credentials are not configured")
	case tablestore.KindTransport, tablestore.KindRemoteRejected, tablestore.KindDecode:
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Table store request failed")
	default:
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected failure")
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}
