package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/proposal-vetting/internal/logger"
)

func TestServeWaitsForTracingFlush(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	var flushed atomic.Bool
	flush := func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		flushed.Store(true)
		return errors.New("collector unreachable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- serve(ctx, srv, ln, flush, logger.Discard()) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.True(t, flushed.Load(), "serve returned before tracing was flushed")
}

func TestServeReturnsListenerErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = serve(ctx, &http.Server{}, ln, func(context.Context) error { return nil }, logger.Discard())
	assert.Error(t, err)
}
