package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelqueue/reelqueue/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleSelect serves GET /movies?select=*&order={col}.{asc|desc}. The full
// column set is always returned regardless of the select parameter.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid API key")
		return
	}

	orderField, ascending, err := parseOrderParam(r.URL.Query().Get("order"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	rows, err := s.repo.Movies.ListAll(r.Context(), orderField, ascending)
	if err != nil {
		s.logger.Printf("backend: select movies failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list rows")
		return
	}
	s.respondJSON(w, http.StatusOK, rows)
}

// handleInsert serves POST /movies. Bodies may be a JSON array or a single
// object; the created representation comes back in the same round trip when
// the Prefer header asks for it.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid API key")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to read request body")
		return
	}

	rows, err := decodeInsertBody(payload)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	created := make([]repository.MovieRow, 0, len(rows))
	for _, row := range rows {
		inserted, err := s.repo.Movies.Insert(r.Context(), row)
		if err != nil {
			s.logger.Printf("backend: insert movie failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to insert row")
			return
		}
		created = append(created, inserted)
	}

	if wantsRepresentation(r.Header.Get("Prefer")) {
		s.respondJSON(w, http.StatusCreated, created)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleDelete serves DELETE /movies?id=eq.{value}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid API key")
		return
	}

	id, err := parseIDPredicate(r.URL.Query().Get("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if _, err := s.repo.Movies.DeleteByID(r.Context(), id); err != nil {
		s.logger.Printf("backend: delete movie failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete row")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseOrderParam parses a PostgREST order expression like "createdAt.asc".
// A bare column name defaults to ascending; an empty parameter orders by id.
func parseOrderParam(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "id", true, nil
	}

	field := raw
	ascending := true
	if idx := strings.LastIndex(raw, "."); idx >= 0 {
		field = raw[:idx]
		switch raw[idx+1:] {
		case "asc":
			ascending = true
		case "desc":
			ascending = false
		default:
			return "", false, fmt.Errorf("invalid order direction %q", raw[idx+1:])
		}
	}
	if !repository.OrderableColumn(field) {
		return "", false, fmt.Errorf("cannot order by %q", field)
	}
	return field, ascending, nil
}

// parseIDPredicate parses the equality predicate "eq.{value}" on the id
// column, the only filter the subset supports.
func parseIDPredicate(raw string) (int64, error) {
	value, ok := strings.CutPrefix(raw, "eq.")
	if !ok {
		return 0, fmt.Errorf("id filter must use the eq operator")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id value %q", value)
	}
	return id, nil
}

func decodeInsertBody(payload []byte) ([]repository.MovieRow, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, fmt.Errorf("request body cannot be empty")
	}

	var rows []repository.MovieRow
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
			return nil, fmt.Errorf("malformed JSON array")
		}
	} else {
		var row repository.MovieRow
		if err := json.Unmarshal([]byte(trimmed), &row); err != nil {
			return nil, fmt.Errorf("malformed JSON object")
		}
		rows = []repository.MovieRow{row}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to insert")
	}
	return rows, nil
}

func wantsRepresentation(prefer string) bool {
	for _, part := range strings.Split(prefer, ",") {
		if strings.TrimSpace(part) == "return=representation" {
			return true
		}
	}
	return false
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
