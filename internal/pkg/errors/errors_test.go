package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusGone, ErrCodePaused, "This link is paused.", nil)

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Gone", body["error"])
	assert.Equal(t, "PAUSED", body["code"])
	assert.Equal(t, "This link is paused.", body["message"])
	assert.NotContains(t, body, "details")
}

func TestWriteError_Details(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, ErrCodeInvalidRules, "Invalid destination rules", []string{"rule 1"})

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_RULES", resp.Code)
	assert.Equal(t, []interface{}{"rule 1"}, resp.Details)
}
