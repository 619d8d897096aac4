package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsStatusBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "test-agent"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "42", resp.Headers.Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestContextCancellationSurfacesCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c := New(5 * time.Second)
	_, err := c.Get(ctx, srv.URL, nil)
	assert.Error(t, err)
}

func TestStatusClassificationHelpers(t *testing.T) {
	assert.True(t, (&Response{StatusCode: 429}).IsRateLimited())
	assert.True(t, (&Response{StatusCode: 404}).IsNotFound())
	assert.True(t, (&Response{StatusCode: 503}).IsServerError())
	assert.True(t, (&Response{StatusCode: 200}).IsSuccess())
	assert.False(t, (&Response{StatusCode: 401}).IsSuccess())
}
