package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/adapters/notify"
	"argus/internal/platform/config"
	"argus/internal/platform/logx"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "none"
	cfg.Broadcast.Driver = "none"
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestBuildStack_Minimal(t *testing.T) {
	cfg := testConfig(t)

	st, err := buildStack(context.Background(), cfg, logx.NewSilent(), stackOptions{})
	require.NoError(t, err)
	defer st.Close(logx.NewSilent())

	assert.Nil(t, st.store)
	assert.Nil(t, st.broadcaster())
	require.Len(t, st.exporters, 1)
	assert.Equal(t, "json", st.exporters[0].Name())
}

func TestBuildStack_SQLiteAndStreaming(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "argus.db")
	cfg.Broadcast.Driver = "log"

	st, err := buildStack(context.Background(), cfg, logx.NewSilent(), stackOptions{stream: true})
	require.NoError(t, err)
	defer st.Close(logx.NewSilent())

	assert.NotNil(t, st.store)
	_, multi := st.broadcaster().(notify.MultiBroadcaster)
	assert.True(t, multi)

	orch, err := newOrchestrator(cfg, logx.NewSilent(), st, nil)
	require.NoError(t, err)
	assert.Empty(t, orch.ListTasks())
}

func TestBuildStack_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"
	_, err := buildStack(context.Background(), cfg, logx.NewSilent(), stackOptions{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Broadcast.Driver = "kafka"
	_, err = buildStack(context.Background(), cfg, logx.NewSilent(), stackOptions{})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "argus dev")
}
