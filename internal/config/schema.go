// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

var configSchema = `
	{
  "type": "object",
  "properties": {
    "log_level": {
      "description": "Logging verbosity.",
      "type": "string",
      "enum": ["debug", "info", "notice", "warn", "err", "crit"]
    },
    "log_path": {
      "description": "File path the log is written to; log lines then go only to this file, not also to stderr.",
      "type": "string"
    },
    "tcp_backlog": {
      "description": "listen() backlog, capped at the platform's SOMAXCONN.",
      "type": "integer",
      "minimum": 1
    },
    "ip_address": {
      "description": "Listen address in TCP mode.",
      "type": "string"
    },
    "ip_port": {
      "description": "Listen port in TCP mode.",
      "type": "integer",
      "minimum": 1,
      "maximum": 65535
    },
    "unix_socket": {
      "description": "Switches to Unix-socket mode and sets the socket path.",
      "type": "string"
    },
    "metrics_address": {
      "description": "Listen address for the Prometheus /metrics endpoint. Empty disables it.",
      "type": "string"
    },
    "nats_address": {
      "description": "NATS server URL used for the line-protocol ingest path. Empty disables it.",
      "type": "string"
    },
    "nats_subjects": {
      "description": "NATS subjects subscribed to for line-protocol ingest.",
      "type": "array",
      "items": { "type": "string" }
    },
    "user": {
      "description": "Unprivileged user to switch to after the listener is bound.",
      "type": "string"
    },
    "group": {
      "description": "Unprivileged group to switch to after the listener is bound.",
      "type": "string"
    }
  },
  "additionalProperties": false
}`
