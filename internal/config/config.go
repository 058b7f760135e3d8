// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/codepr/tts/pkg/log"
)

// Keys holds the process-wide configuration, populated by Init from an
// optional JSON file and then overridden in cmd/tts-server by whichever
// command-line flags the caller explicitly set (§6's flag mirroring).
var Keys = Config{
	LogLevel:   "info",
	LogPath:    "",
	TCPBacklog: 128,
	IPAddress:  "127.0.0.1",
	IPPort:     19191,
	UnixSocket: "",
}

// Config is the full set of recognized keys, one field per row of §6's
// configuration table, plus the optional metrics and NATS ingest keys that
// are off by default and only take effect when a non-empty address is set.
type Config struct {
	LogLevel     string   `json:"log_level"`
	LogPath      string   `json:"log_path"`
	TCPBacklog   int      `json:"tcp_backlog"`
	IPAddress    string   `json:"ip_address"`
	IPPort       int      `json:"ip_port"`
	UnixSocket   string   `json:"unix_socket"`
	MetricsAddr  string   `json:"metrics_address"`
	NatsAddress  string   `json:"nats_address"`
	NatsSubjects []string `json:"nats_subjects"`
	User         string   `json:"user"`
	Group        string   `json:"group"`
}

// UnixMode reports whether unix_socket switches the server into
// Unix-socket listening mode, per §6.
func (c Config) UnixMode() bool { return c.UnixSocket != "" }

// Init loads flagConfigFile into Keys, validating it against configSchema
// first. A missing file is not an error — Keys keeps its defaults — but a
// malformed or schema-invalid file is fatal, matching the fail-fast config
// loading style of the original.
func Init(flagConfigFile string) {
	if flagConfigFile == "" {
		return
	}

	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Fatalf("config: read %s: %v", flagConfigFile, err)
	}

	if err := Validate(configSchema, raw); err != nil {
		log.Fatalf("config: validate %s: %v", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("config: decode %s: %v", flagConfigFile, err)
	}
}
