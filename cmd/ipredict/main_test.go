package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/ipredict/pkg/config"
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/geolocate"
	"github.com/NERVsystems/ipredict/pkg/metrics"
	"github.com/NERVsystems/ipredict/pkg/testutil"
	"github.com/NERVsystems/ipredict/pkg/version"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.String()+"\n", out.String())
}

func TestGenerateConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "claude_desktop_config.json")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate-config", path, "--lat", "51.5", "--lng", "-0.12"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	var got struct {
		MCPServers map[string]struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))

	entry, ok := got.MCPServers["ipredict"]
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(entry.Command))
	assert.Equal(t, []string{"serve", "--lat", "51.5", "--lng", "-0.12"}, entry.Args)
}

func TestGenerateClientConfig_KeepsOtherServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	existing := `{"mcpServers": {"other": {"command": "/bin/other"}}, "theme": "dark"}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	require.NoError(t, generateClientConfig(path, "/usr/local/bin/ipredict", []string{"serve"}))

	var got map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "dark", got["theme"])
	servers := got["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "other")
	assert.Equal(t, "/usr/local/bin/ipredict", servers["ipredict"].(map[string]any)["command"])
}

func TestGenerateClientConfig_ReplacesInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	require.NoError(t, generateClientConfig(path, "/usr/local/bin/ipredict", []string{"serve"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestDevicePosition(t *testing.T) {
	opts := &rootOptions{lat: 51.4, lng: -0.2}
	assert.Nil(t, opts.devicePosition())

	opts.latSet = true
	assert.Nil(t, opts.devicePosition(), "both flags are needed")

	opts.lngSet = true
	assert.Equal(t, &geo.Location{Lat: 51.4, Lng: -0.2}, opts.devicePosition())
}

func TestResolveStart(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Respond("/json", http.StatusOK, `{"latitude": 53.48, "longitude": -2.24}`)

	cfg := config.Default()
	cfg.Geolocation.IPLookupURL = b.URL + "/json"
	logger := testutil.DiscardLogger()
	transport := newTransport(cfg, metrics.Nop{}, logger)
	ctx := context.Background()

	device := &geo.Location{Lat: 51.4, Lng: -0.2}
	assert.Equal(t, *device, resolveStart(ctx, cfg, device, transport, logger))
	assert.Empty(t, b.Requests("/json"))

	assert.Equal(t, geo.Location{Lat: 53.48, Lng: -2.24}, resolveStart(ctx, cfg, nil, transport, logger))
	require.Len(t, b.Requests("/json"), 1)
	assert.Equal(t, cfg.API.UserAgent, version.UserAgent())

	cfg.Geolocation.Disabled = true
	assert.Equal(t, geolocate.Default, resolveStart(ctx, cfg, nil, transport, logger))
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	newLogger(&buf, cfg, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, cfg, true).Debug("shown")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
