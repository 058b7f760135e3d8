// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"golang.org/x/sys/unix"

	"github.com/codepr/tts/internal/config"
	"github.com/codepr/tts/internal/connection"
	"github.com/codepr/tts/internal/dispatch"
	"github.com/codepr/tts/internal/ingest"
	"github.com/codepr/tts/internal/metrics"
	"github.com/codepr/tts/internal/reactor"
	"github.com/codepr/tts/internal/runtimeEnv"
	"github.com/codepr/tts/internal/timeseries"
	"github.com/codepr/tts/pkg/log"
	natsclient "github.com/codepr/tts/pkg/nats"
)

func main() {
	var flagConfigFile, flagAddr, flagMode, flagUnixSocket string
	var flagPort int
	var flagVerbose, flagDaemon, flagGops bool
	flag.StringVar(&flagConfigFile, "c", "", "Load configuration from `path`")
	flag.StringVar(&flagAddr, "a", "", "Listen address (TCP mode)")
	flag.IntVar(&flagPort, "p", 0, "Listen port (TCP mode)")
	flag.StringVar(&flagMode, "m", "", "Transport mode: tcp or unix")
	flag.StringVar(&flagUnixSocket, "s", "", "Unix socket path (implies -m unix)")
	flag.BoolVar(&flagVerbose, "v", false, "Enable debug logging")
	flag.BoolVar(&flagDaemon, "d", false, "Daemonize")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	config.Init(flagConfigFile)
	applyFlagOverrides(flagAddr, flagPort, flagMode, flagUnixSocket, flagVerbose)

	log.SetLogLevel(config.Keys.LogLevel)
	if config.Keys.LogPath != "" {
		if f, err := os.OpenFile(config.Keys.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
			log.Fatalf("open log_path %s: %v", config.Keys.LogPath, err)
		} else {
			log.DebugWriter, log.InfoWriter, log.WarnWriter, log.ErrWriter = f, f, f, f
		}
	}

	if flagDaemon {
		daemonize()
	}

	r, err := reactor.New()
	if err != nil {
		log.Fatalf("reactor.New: %v", err)
	}

	reg := timeseries.NewRegistry()
	d := dispatch.New(reg, timeseries.SystemClock{})

	srv, err := connection.NewServer(r, connection.ListenConfig{
		UnixSocket: config.Keys.UnixSocket,
		IPAddress:  config.Keys.IPAddress,
		IPPort:     config.Keys.IPPort,
		TCPBacklog: config.Keys.TCPBacklog,
	}, d.Handle, nil)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("server.Start: %v", err)
	}

	// The listener must be bound before dropping root — binding ip_port
	// below 1024 needs the privilege this then gives away.
	if config.Keys.User != "" || config.Keys.Group != "" {
		if err := runtimeEnv.DropPrivileges(config.Keys.User, config.Keys.Group); err != nil {
			log.Fatalf("error while changing user: %s", err.Error())
		}
	}

	installSignalHandler(r)

	if config.Keys.UnixMode() {
		log.Infof("tts-server listening on unix:%s", config.Keys.UnixSocket)
	} else {
		log.Infof("tts-server listening on %s:%d", config.Keys.IPAddress, config.Keys.IPPort)
	}

	var metricsCancel context.CancelFunc
	if config.Keys.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(config.Keys.MetricsAddr)
		var ctx context.Context
		ctx, metricsCancel = context.WithCancel(context.Background())
		go func() {
			if err := metricsSrv.Serve(ctx); err != nil {
				log.Warnf("metrics server: %v", err)
			}
		}()
		log.Infof("tts-server: metrics exposed on %s/metrics", config.Keys.MetricsAddr)
	}

	var natsClient *natsclient.Client
	if config.Keys.NatsAddress != "" {
		natsClient = startIngest(r, reg)
	}

	runtimeEnv.SystemdNotifiy(true, "running")
	if err := r.Run(); err != nil {
		log.Fatalf("reactor.Run: %v", err)
	}
	runtimeEnv.SystemdNotifiy(false, "shutting down")
	if metricsCancel != nil {
		metricsCancel()
	}
	if natsClient != nil {
		natsClient.Close()
	}
	srv.Close()
	log.Print("tts-server: graceful shutdown complete")
}

// startIngest wires the NATS line-protocol ingest path into the reactor, per
// the bulk-load alternative to the ADDPOINTS opcode. It is best-effort:
// a connection failure logs and leaves the binary-protocol path unaffected.
// The returned client is nil on failure; callers must check before Close.
func startIngest(r *reactor.Reactor, reg *timeseries.Registry) *natsclient.Client {
	client, err := natsclient.NewClient(&natsclient.NatsConfig{Address: config.Keys.NatsAddress})
	if err != nil {
		log.Warnf("nats: connect to %s: %v", config.Keys.NatsAddress, err)
		return nil
	}

	ing, err := ingest.New(reg, timeseries.SystemClock{})
	if err != nil {
		log.Warnf("ingest.New: %v", err)
		return nil
	}
	if err := ing.Attach(r); err != nil {
		log.Warnf("ingest.Attach: %v", err)
		return nil
	}
	if err := ingest.Subscribe(client, config.Keys.NatsSubjects, ing); err != nil {
		log.Warnf("ingest.Subscribe: %v", err)
		return nil
	}
	log.Infof("tts-server: ingesting line protocol from %s subjects=%v", config.Keys.NatsAddress, config.Keys.NatsSubjects)
	return client
}

func applyFlagOverrides(addr string, port int, mode, unixSocket string, verbose bool) {
	if addr != "" {
		config.Keys.IPAddress = addr
	}
	if port != 0 {
		config.Keys.IPPort = port
	}
	if unixSocket != "" {
		config.Keys.UnixSocket = unixSocket
	}
	if mode == "unix" && config.Keys.UnixSocket == "" {
		config.Keys.UnixSocket = "/tmp/tts.sock"
	}
	if mode == "tcp" {
		config.Keys.UnixSocket = ""
	}
	if verbose {
		config.Keys.LogLevel = "debug"
	}
}

// installSignalHandler wires SIGINT/SIGTERM into the reactor's own wake
// mechanism: the signal goroutine calls Stop(), which clears the running
// flag and writes a token to the wake fd (an eventfd on Linux, a
// non-blocking pipe elsewhere) so the reactor's poll returns, per §4.7.
func installSignalHandler(r *reactor.Reactor) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("tts-server: received shutdown signal")
		if err := r.Stop(); err != nil {
			log.Warnf("reactor.Stop: %v", err)
		}
	}()
}

// daemonize detaches the process from its controlling terminal the way a
// traditional Unix daemon does: fork, become a session leader, redirect the
// standard streams, and let the parent exit. Go's runtime forbids a direct
// fork(2) of a multi-threaded process, so this re-execs itself with a
// marker environment variable instead of calling fork directly.
func daemonize() {
	const marker = "TTS_DAEMONIZED"
	if os.Getenv(marker) == "1" {
		unix.Setsid()
		return
	}

	env := append(os.Environ(), marker+"=1")
	attr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
	}
	p, err := os.StartProcess(os.Args[0], os.Args, attr)
	if err != nil {
		log.Fatalf("daemonize: %v", err)
	}
	log.Infof("tts-server: daemonized as pid %d", p.Pid)
	os.Exit(0)
}
