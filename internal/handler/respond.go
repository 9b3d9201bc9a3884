package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/projects"
	"github.com/inventhq/invent/pkg/client"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Field  string              `json:"field,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError answers with the status matching err. Upstream API errors keep
// their status; transport failures are a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	var (
		fieldErr *domain.FieldError
		authErr  *client.AuthError
		apiErr   *client.APIError
		connErr  *client.ConnectionError
	)
	switch {
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fieldErr.Message, Field: fieldErr.Field})
	case errors.Is(err, domain.ErrNoProfile):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	case errors.As(err, &authErr):
		status := authErr.StatusCode
		if status == 0 {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, ErrorResponse{Error: authErr.Message})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, projects.ErrSuperseded):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, ErrorResponse{Error: apiErr.Message, Fields: apiErr.Fields})
	case errors.As(err, &connErr), errors.Is(err, client.ErrRateLimited):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "INVENT API unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// maxBody bounds request bodies, CSV uploads included.
const maxBody = 10 << 20

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

// queryInt reads an optional non-negative integer query parameter; absent is
// zero.
func queryInt(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewFieldError(name, "must be a non-negative integer", err)
	}
	return n, nil
}
