package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownApp(t *testing.T) {
	assert.True(t, KnownApp("notepad"))
	assert.True(t, KnownApp("Calculator"))
	assert.True(t, KnownApp("  browser "))
	assert.False(t, KnownApp("frobulator"))
	assert.False(t, KnownApp(""))
}

func TestSend(t *testing.T) {
	var gotPath, gotCommand, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		_ = json.Unmarshal(body, &payload)
		gotCommand = payload["command"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	require.NoError(t, c.Send(context.Background(), "notepad"))
	assert.Equal(t, "/command", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "notepad", gotCommand)
}

func TestSendTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "")
	require.NoError(t, err)

	require.NoError(t, c.Send(context.Background(), "cmd"))
	assert.Equal(t, "/command", gotPath)
}

func TestSendNonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	err = c.Send(context.Background(), "notepad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendUnreachable(t *testing.T) {
	c, err := New("http://127.0.0.1:1", "")
	require.NoError(t, err)

	assert.Error(t, c.Send(context.Background(), "notepad"))
}
