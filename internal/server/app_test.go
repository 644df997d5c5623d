package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.Storage = config.StorageMemory
	c.BotToken = "123:abc"
	c.LogLevel = "error"

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	c.HTTPAddr = l.Addr().String()
	require.NoError(t, l.Close())
	return c
}

func TestNewApp_UnknownLogBackend(t *testing.T) {
	c := memoryConfig(t)
	c.LogBackend = "syslog"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestNewApp_BadRedisURL(t *testing.T) {
	c := memoryConfig(t)
	c.RedisURL = "not-a-url"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "redis init error")
}

func TestApp_RunServesUntilCanceled(t *testing.T) {
	c := memoryConfig(t)
	c.JanitorInterval = 10 * time.Millisecond

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + c.HTTPAddr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_JanitorPurges(t *testing.T) {
	c := memoryConfig(t)
	c.ExportTokenTTL = time.Nanosecond

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	tok, err := app.transfers.Issue(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go app.runJanitor(ctx, 5*time.Millisecond)
	defer cancel()

	// an expired token still stored reports ErrTokenExpired; a purged one
	// is simply not found
	require.Eventually(t, func() bool {
		_, err := app.transfers.Lookup(context.Background(), tok.Token)
		return errors.Is(err, common.ErrTokenNotFound) && !errors.Is(err, common.ErrTokenExpired)
	}, time.Second, 10*time.Millisecond)
}
