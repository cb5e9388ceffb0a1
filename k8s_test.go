package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestK8s(t *testing.T, handler http.HandlerFunc) *K8sClient {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("secret"), 0o600))

	return &K8sClient{namespace: "minecraft", apiBase: srv.URL, tokenPath: tokenPath}
}

func TestPodSource_Tail(t *testing.T) {
	k8s := newTestK8s(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/namespaces/minecraft/pods":
			assert.Equal(t, "app=mc", r.URL.Query().Get("labelSelector"))
			w.Write([]byte(`{"items":[{"metadata":{"name":"mc-0"}}]}`))
		case "/api/v1/namespaces/minecraft/pods/mc-0/log":
			assert.Equal(t, "3", r.URL.Query().Get("tailLines"))
			w.Write([]byte("[10:00:00] [Server thread/INFO]: Ann joined the game\n" +
				"[10:00:01] [Server thread/INFO]: <Ann> hi\n"))
		default:
			http.NotFound(w, r)
		}
	})

	got, err := NewPodSource(k8s, "app=mc").Tail(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
		"[10:00:01] [Server thread/INFO]: <Ann> hi",
	}, got)
}

func TestPodSource_NoPod(t *testing.T) {
	k8s := newTestK8s(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})

	_, err := NewPodSource(k8s, "app=mc").Tail(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}
