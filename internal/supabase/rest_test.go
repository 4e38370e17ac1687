package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

// newTestClient points a Client at handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, AnonKey: "anon", AccessToken: "user-jwt"})
	require.NoError(t, err)
	return c
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{AnonKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
	_, err = New(Config{URL: "ftp://x", AnonKey: "k"})
	assert.Error(t, err)

	c, err := New(Config{URL: "https://x.supabase.co/", AnonKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, c.cfg.Table)
	assert.Equal(t, DefaultSchema, c.cfg.Schema)
	assert.Equal(t, "k", c.bearer())
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/todos", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "id.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "public", r.Header.Get("Accept-Profile"))
		_, _ = io.WriteString(w, `[{"id":1,"task":"a","done":false},{"id":2,"task":"b","done":true,"created_at":"2024-01-01"}]`)
	})

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{{ID: 1, Task: "a"}, {ID: 2, Task: "b", Done: true}}, got)
}

func TestFetchEmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestInsert(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "public", r.Header.Get("Content-Profile"))
		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []map[string]any{{"task": "buy milk", "done": false}}, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":3,"task":"buy milk","done":false}]`)
	})

	got, err := c.Insert(context.Background(), "buy milk")
	require.NoError(t, err)
	assert.Equal(t, model.Todo{ID: 3, Task: "buy milk"}, got)
}

func TestUpdate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.2", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"done": true}, body)
		_, _ = io.WriteString(w, `[{"id":2,"task":"b","done":true}]`)
	})

	got, err := c.Update(context.Background(), 2, model.DonePatch(true))
	require.NoError(t, err)
	assert.Equal(t, model.Todo{ID: 2, Task: "b", Done: true}, got)
}

func TestUpdateMissingRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.Update(context.Background(), 99, model.TaskPatch("x"))
	assert.ErrorIs(t, err, remote.ErrNotFound)

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "update", re.Op)
}

func TestDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.5", r.URL.Query().Get("id"))
		assert.Empty(t, r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Delete(context.Background(), 5))
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"PGRST301","message":"JWT expired","details":null,"hint":null}`)
	})

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "PGRST301", apiErr.Code)
	assert.Equal(t, "fetch: postgrest 401 PGRST301: JWT expired", err.Error())
}

func TestAPIErrorPlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	err := c.Delete(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "bad gateway")
}
