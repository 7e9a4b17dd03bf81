package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "TestAgent/1.0"})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "TestAgent/1.0", client.userAgent)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		client := New(&Config{})
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.NotEmpty(t, client.userAgent)
	})
}

func TestDoInjectsUserAgent(t *testing.T) {
	var received atomic.Value
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		received.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	})

	client := New(&Config{UserAgent: "CustomAgent/2.0"})
	t.Cleanup(client.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err)
	DrainAndClose(resp)

	assert.Equal(t, "CustomAgent/2.0", received.Load())
}

func TestDoAppliesDefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := New(&Config{DefaultTimeout: 50 * time.Millisecond})
	t.Cleanup(client.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(context.Background(), req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoBodyReadableAfterReturn(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":1}`))
	})

	client := New(nil)
	t.Cleanup(client.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	defer DrainAndClose(resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":1}`, string(body))
}

func TestPostJSON(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key=abc", r.Header.Get("Authorization"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "token-1", payload["to"])
		w.WriteHeader(http.StatusOK)
	})

	client := New(nil)
	t.Cleanup(client.Close)

	resp, err := client.PostJSON(t.Context(), server.URL, map[string]any{"to": "token-1"}, map[string]string{"Authorization": "key=abc"})
	require.NoError(t, err)
	defer DrainAndClose(resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestObserver(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	client := New(nil)
	t.Cleanup(client.Close)

	var accepted, failed atomic.Int32
	client.SetRequestObserver(func(_ *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		switch {
		case err != nil:
			failed.Add(1)
		case resp.StatusCode == http.StatusAccepted:
			accepted.Add(1)
		}
	})

	resp, err := client.PostJSON(t.Context(), server.URL, struct{}{}, nil)
	require.NoError(t, err)
	DrainAndClose(resp)

	_, err = client.PostJSON(t.Context(), "http://127.0.0.1:1", struct{}{}, nil)
	require.Error(t, err)

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(1), failed.Load())

	client.SetRequestObserver(nil)
	resp, err = client.PostJSON(t.Context(), server.URL, struct{}{}, nil)
	require.NoError(t, err)
	DrainAndClose(resp)
	assert.Equal(t, int32(1), accepted.Load())
}

func TestDoNilRequest(t *testing.T) {
	_, err := New(nil).Do(t.Context(), nil)
	require.Error(t, err)
}
