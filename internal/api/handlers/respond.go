package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/links"
	"linkroute/internal/engine/routing"
	"linkroute/internal/pkg/errors"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into v. An empty body is allowed when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && stderrors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Request body too large", nil)
		return false
	}
	errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", err.Error())
	return false
}

// writeServiceError maps engine errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rulesErr *routing.RulesError
	var linkErr *links.ValidationError

	switch {
	case stderrors.As(err, &rulesErr):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidRules, "Invalid destination rules", rulesErr.Issues)
	case stderrors.As(err, &linkErr):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid link", linkErr.Problems)
	case stderrors.Is(err, links.ErrInvalidAlias), stderrors.Is(err, links.ErrInvalidLink), stderrors.Is(err, links.ErrInvalidQRSize):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case stderrors.Is(err, links.ErrNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Link not found", nil)
	case stderrors.Is(err, links.ErrAliasTaken), stderrors.Is(err, links.ErrVersionConflict):
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, err.Error(), nil)
	case stderrors.Is(err, links.ErrForbidden):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Not allowed to modify this link", nil)
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}
}
