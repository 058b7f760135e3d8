// Package metrics exposes the server's own operational counters —
// connections, requests by opcode, query latency — on a small dedicated
// HTTP endpoint, kept entirely separate from the binary wire protocol it
// measures.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codepr/tts/internal/wire"
	"github.com/codepr/tts/pkg/log"
)

var (
	ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tts_connections_opened_total",
		Help: "Total connections accepted.",
	})

	ConnectionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tts_connections_closed_total",
		Help: "Total connections torn down.",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_requests_total",
		Help: "Total requests handled, by opcode and response status.",
	}, []string{"opcode", "status"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tts_query_duration_seconds",
		Help:    "QUERY handler latency.",
		Buckets: prometheus.DefBuckets,
	})

	TimeseriesCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tts_timeseries_total",
		Help: "Number of live timeseries in the registry.",
	})
)

// ObserveRequest records one completed request/response pair.
func ObserveRequest(op wire.Opcode, status wire.Status) {
	RequestsTotal.WithLabelValues(op.String(), statusLabel(status)).Inc()
}

// ConnectionOpened records one accepted connection.
func ConnectionOpened() {
	ConnectionsOpened.Inc()
}

// ConnectionClosed records one torn-down connection.
func ConnectionClosed() {
	ConnectionsClosed.Inc()
}

func statusLabel(s wire.Status) string {
	switch s {
	case wire.StatusOK:
		return "ok"
	case wire.StatusNotFound:
		return "not_found"
	case wire.StatusUnknownCmd:
		return "unknown_cmd"
	case wire.StatusOOM:
		return "oom"
	default:
		return "unknown"
	}
}

// Server serves /metrics on its own listener, independent of the tts wire
// protocol's socket.
type Server struct {
	http *http.Server
}

// NewServer builds a metrics HTTP server bound to addr. It does not start
// listening until Serve is called.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{http: &http.Server{Addr: addr, Handler: mux}}
}

// Serve blocks serving /metrics until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Warnf("[METRICS] shutdown: %v", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
