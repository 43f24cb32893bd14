// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/web"
)

func stopServer(t *testing.T, server *web.Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
}

func TestServer_ServesRouter(t *testing.T) {
	f := newAPIFixture(t)
	server := web.NewServer("127.0.0.1:0", f.router)

	_, err := server.Start()
	require.NoError(t, err)
	defer stopServer(t, server)

	addr := server.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/api/me")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// No token: the guard rejects, which proves the router is wired
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := web.NewServer("127.0.0.1:0", http.NotFoundHandler())

	_, err := server.Start()
	require.NoError(t, err)
	defer stopServer(t, server)

	_, err = server.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := web.NewServer("127.0.0.1:0", http.NotFoundHandler())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx), "stop without start should not error")
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := web.NewServer("127.0.0.1:0", http.NotFoundHandler())

	errCh, err := server.Start()
	require.NoError(t, err)
	stopServer(t, server)

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	first := web.NewServer("127.0.0.1:0", http.NotFoundHandler())
	_, err := first.Start()
	require.NoError(t, err)
	defer stopServer(t, first)

	// Same port is taken
	second := web.NewServer(first.Addr(), http.NotFoundHandler())
	_, err = second.Start()
	require.Error(t, err)
}
