package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "evidex/pkg/domain-errors"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "internal_error", env.Error.Code)
		assert.Empty(t, env.Error.Message)
	})

	t.Run("untyped error is treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("privileged document includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodePrivilegedDocument, "evidence is withheld"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "privileged_document", env.Error.Code)
		assert.Equal(t, "evidence is withheld", env.Error.Message)
	})

	t.Run("invalid transition maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(assert.AnError, dErrors.CodeInvalidTransition, "hold already released"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"processed": 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
		var b body
		err := DecodeJSON(r, &b)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var b body
		err := DecodeJSON(r, &b)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("decodes valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
		var b body
		require.NoError(t, DecodeJSON(r, &b))
		assert.Equal(t, "a", b.Name)
	})
}
