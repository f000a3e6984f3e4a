package upsert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.NoError(t, c.Upsert(context.Background(), map[string]any{"id": 1, "name": "Acme"}))
	assert.Equal(t, map[string]any{"id": 1.0, "name": "Acme"}, got)
}

func TestUpsert_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Upsert(context.Background(), map[string]any{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "upsert: status=500", err.Error())
}

func TestUpsert_ErrorOmitsEchoedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid record","record":` + string(b) + `}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Upsert(context.Background(), map[string]any{"access_token": "shpat_0123456789abcdef"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
	assert.NotContains(t, err.Error(), "shpat_0123456789abcdef")
}

func TestUpsert_NoURL(t *testing.T) {
	err := (&Client{}).Upsert(context.Background(), map[string]any{})
	assert.Error(t, err)
}
