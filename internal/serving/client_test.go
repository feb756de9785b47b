package serving

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	return Config{
		BaseURL:        url,
		Timeout:        time.Second,
		HealthAttempts: 3,
		HealthBackoff:  time.Millisecond,
	}
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ping", r.URL.Path)
		w.Write([]byte(`{"alive": true}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL+"/"), testutil.TestLogger(t))
	alive, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestClient_WaitUntilAliveRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			http.Error(w, "starting", http.StatusServiceUnavailable)
		case 2:
			w.Write([]byte(`{"alive": false}`))
		default:
			w.Write([]byte(`{"alive": true}`))
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testutil.TestLogger(t))
	require.NoError(t, c.WaitUntilAlive(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_WaitUntilAliveGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"alive": false}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testutil.NopLogger())
	err := c.WaitUntilAlive(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_WaitUntilAliveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(testConfig(url), testutil.NopLogger())
	err := c.WaitUntilAlive(context.Background())
	assert.True(t, errors.Is(err, ErrServerUnavailable))
}

func TestClient_WaitUntilAliveCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alive": false}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.HealthBackoff = time.Hour
	c := NewClient(cfg, testutil.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.WaitUntilAlive(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Reload(t *testing.T) {
	var reloads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/model/reload", r.URL.Path)
		atomic.AddInt32(&reloads, 1)
		w.Write([]byte(`{"status": "reloaded"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testutil.TestLogger(t))
	ack, err := c.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reloaded", ack["status"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads))
}

func TestClient_ReloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testutil.NopLogger())
	_, err := c.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
