// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Flags(t *testing.T) {
	cmd := newServeCmd()

	for _, name := range []string{
		"addr", "metrics-addr", "database-url",
		"session-ttl", "reset-ttl", "single-session", "log-format",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "serve missing --%s flag", name)
	}
}

func TestServeCommand_FlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", addr)

	logFormat, err := cmd.Flags().GetString("log-format")
	require.NoError(t, err)
	assert.Equal(t, "json", logFormat)

	singleSession, err := cmd.Flags().GetBool("single-session")
	require.NoError(t, err)
	assert.False(t, singleSession)
}

func TestOpenRepositories_InMemoryFallback(t *testing.T) {
	repos, cleanup, err := openRepositories(context.Background(), "")
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, repos.users)
	assert.NotNil(t, repos.sessions)
	assert.NotNil(t, repos.resets)
}

func TestOpenRepositories_InvalidURL(t *testing.T) {
	_, _, err := openRepositories(context.Background(), "invalid://url")
	require.Error(t, err)
}
