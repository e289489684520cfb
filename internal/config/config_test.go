package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netpong/internal/netwrk"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{"PORT", "LOG_LEVEL", "TICK_RATE", "MAX_PAYLOAD_BYTES", "OUTBOUND_QUEUE", "WRITE_TIMEOUT", "PAYLOAD_CODEC", "REPLAY_DIR", "SPECTATOR_ADDR"} {
		t.Setenv(envPrefix+name, "")
		os.Unsetenv(envPrefix + name)
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, float64(60), cfg.TickRate)
	assert.Equal(t, 64<<10, cfg.MaxPayloadBytes)
	assert.Equal(t, 256, cfg.OutboundQueue)
	assert.Equal(t, Duration(5*time.Second), cfg.WriteTimeout)
	assert.Equal(t, "json", cfg.PayloadCodec)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"port": 9000,
		"logLevel": -4,
		"tickRate": 120,
		"writeTimeout": "250ms",
		"payloadCodec": "proto",
		"replayDir": "/tmp/replays"
	}`)
	t.Setenv("PONG_PORT", "9100")
	t.Setenv("PONG_OUTBOUND_QUEUE", "32")
	t.Setenv("PONG_SPECTATOR_ADDR", "127.0.0.1:8081")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "env wins over file")
	assert.Equal(t, -4, cfg.LogLevel)
	assert.Equal(t, float64(120), cfg.TickRate)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.WriteTimeout)
	assert.Equal(t, "proto", cfg.PayloadCodec)
	assert.Equal(t, "/tmp/replays", cfg.ReplayDir)
	assert.Equal(t, 32, cfg.OutboundQueue)
	assert.Equal(t, "127.0.0.1:8081", cfg.SpectatorAddr)
}

func TestWriteTimeoutAsMilliseconds(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `{"writeTimeout": 1500}`))
	require.NoError(t, err)
	assert.Equal(t, Duration(1500*time.Millisecond), cfg.WriteTimeout)
}

func TestLoadReportsEveryBadVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("PONG_PORT", "abc")
	t.Setenv("PONG_TICK_RATE", "fast")
	t.Setenv("PONG_WRITE_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PONG_PORT")
	assert.Contains(t, err.Error(), "PONG_TICK_RATE")
	assert.Contains(t, err.Error(), "PONG_WRITE_TIMEOUT")
}

func TestLoadRejectsBadFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, `{"port": "x"`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Port = 70000
	cfg.TickRate = 0
	cfg.PayloadCodec = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000")
	assert.Contains(t, err.Error(), "tickRate")
	assert.Contains(t, err.Error(), "xml")
}

func TestServerOptions(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.PayloadCodec = "protobuf"
	cfg.OutboundQueue = 8

	opts, err := cfg.ServerOptions()
	require.NoError(t, err)
	assert.Equal(t, 0, opts.Port)
	assert.Equal(t, float64(60), opts.TickRate)
	assert.Equal(t, netwrk.ProtoCodec{}, opts.Session.Codec)
	assert.Equal(t, 8, opts.Session.QueueSize)
	assert.Equal(t, 5*time.Second, opts.Session.WriteTimeout)
	assert.Equal(t, netwrk.DefaultMaxPayload, opts.Session.MaxPayload)
}
