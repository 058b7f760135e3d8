// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nats

// NatsConfig holds the configuration for connecting to a NATS server,
// filled in from internal/config's nats_address/nats_subjects keys
// rather than a package-local singleton — tts has exactly one config
// source (internal/config.Keys), so this package carries no config
// loading of its own.
type NatsConfig struct {
	Address       string // NATS server address (e.g., "nats://localhost:4222")
	Username      string // Username for authentication (optional)
	Password      string // Password for authentication (optional)
	CredsFilePath string // Path to credentials file (optional)
}
