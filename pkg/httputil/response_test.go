package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteJSON(w, http.StatusTeapot, map[string]string{"hello": "world"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, w.Body.String())
}

func TestWriteErrorHelpers(t *testing.T) {
	t.Run("bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteBadRequest(w, "nope")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"nope"}`, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteNotFound(w, "gone")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteInternalError(w, errors.New("db exploded"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "db exploded")
	})

	t.Run("no content", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteNoContent(w)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`))
		var p payload
		assert.NoError(t, ParseJSON(req, &p))
		assert.Equal(t, "x", p.Name)
	})

	t.Run("invalid writes 400", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{broken`))
		w := httptest.NewRecorder()
		var p payload
		ok := ParseJSONOrError(w, req, &p)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParsePathString(t *testing.T) {
	router := mux.NewRouter()
	var got string
	var ok bool
	router.HandleFunc("/guilds/{guildID}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = ParsePathStringOrError(w, r, "guildID")
	})

	req := httptest.NewRequest("GET", "/guilds/g1", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, ok)
	assert.Equal(t, "g1", got)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=25&bad=x", nil)

	assert.Equal(t, 25, ParseQueryInt(req, "limit", 10))
	assert.Equal(t, 10, ParseQueryInt(req, "bad", 10))
	assert.Equal(t, 10, ParseQueryInt(req, "missing", 10))
}
