// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetKeys() {
	Keys = Config{
		LogLevel:   "info",
		TCPBacklog: 128,
		IPAddress:  "127.0.0.1",
		IPPort:     19191,
	}
}

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	resetKeys()
	Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Equal(t, 19191, Keys.IPPort)
}

func TestInitEmptyPathKeepsDefaults(t *testing.T) {
	resetKeys()
	Init("")
	assert.Equal(t, "127.0.0.1", Keys.IPAddress)
}

func TestInitLoadsOverrides(t *testing.T) {
	resetKeys()
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"log_level":"debug","ip_port":20000,"tcp_backlog":64}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	Init(path)
	assert.Equal(t, "debug", Keys.LogLevel)
	assert.Equal(t, 20000, Keys.IPPort)
	assert.Equal(t, 64, Keys.TCPBacklog)
}

func TestInitRejectsUnknownKey(t *testing.T) {
	err := Validate(configSchema, []byte(`{"bogus_key":true}`))
	require.Error(t, err)
}

func TestUnixModeSwitchesOnSocketPath(t *testing.T) {
	c := Config{}
	assert.False(t, c.UnixMode())
	c.UnixSocket = "/tmp/tts.sock"
	assert.True(t, c.UnixMode())
}

func TestInitLoadsMetricsAndNatsKeys(t *testing.T) {
	resetKeys()
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"metrics_address":"127.0.0.1:9100","nats_address":"nats://127.0.0.1:4222","nats_subjects":["tts.ingest"]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	Init(path)
	assert.Equal(t, "127.0.0.1:9100", Keys.MetricsAddr)
	assert.Equal(t, "nats://127.0.0.1:4222", Keys.NatsAddress)
	assert.Equal(t, []string{"tts.ingest"}, Keys.NatsSubjects)
}
