package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepr/tts/internal/wire"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(wire.OpCreateTS.String(), "ok"))
	ObserveRequest(wire.OpCreateTS, wire.StatusOK)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues(wire.OpCreateTS.String(), "ok"))
	assert.Equal(t, before+1, after)
}

func TestStatusLabelCoversAllStatuses(t *testing.T) {
	cases := map[wire.Status]string{
		wire.StatusOK:         "ok",
		wire.StatusNotFound:   "not_found",
		wire.StatusUnknownCmd: "unknown_cmd",
		wire.StatusOOM:        "oom",
	}
	for status, want := range cases {
		assert.Equal(t, want, statusLabel(status))
	}
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve never returned after cancel")
	}
}

func TestMetricsHandlerServesPlainText(t *testing.T) {
	srv := NewServer("127.0.0.1:19876")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx)
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:19876/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tts_")
}
