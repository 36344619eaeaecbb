package fileexplorerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchDecodesCandidatesAndSendsAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		require.Equal(t, "repo-1", r.URL.Query().Get("repositoryId"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"path":"main.go","score":0.9}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	candidates, err := c.Search(context.Background(), "repo-1", 20)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "main.go", candidates[0].Path)
}

func TestSearchReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Search(context.Background(), "repo-1", 20)
	require.Error(t, err)
}

func TestApplyTagsUsesPostMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.ApplyTags(context.Background(), "repo-1", "main.go", []TagInput{{Key: "role", Value: "entrypoint"}})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
}

func TestRemoveTagsUsesDeleteMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.RemoveTags(context.Background(), "repo-1", "main.go", []TagInput{{Key: "role", Value: "entrypoint"}})
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
}

func TestHealthzReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.Healthz(context.Background())
	require.Error(t, err)
}

func TestHealthzSucceedsOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	require.NoError(t, c.Healthz(context.Background()))
}
