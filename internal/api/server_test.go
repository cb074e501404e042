package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/logger"
)

func TestServer_TimeoutsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Port:      "0",
		Aggregate: config.AggregateConfig{Timeout: 30 * time.Second},
		API: config.APIConfig{
			ReadTimeout:     5 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: time.Second,
			WriteSlack:      10 * time.Second,
		},
	}

	s := New(cfg, logger.Nop(), http.NotFoundHandler())
	assert.Equal(t, ":0", s.httpServer.Addr)
	assert.Equal(t, 5*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 40*time.Second, s.httpServer.WriteTimeout, "aggregation timeout plus slack")
	assert.Equal(t, time.Second, s.shutdownTimeout)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{ShutdownTimeout: time.Second}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	})
	s := New(cfg, logger.Nop(), handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
