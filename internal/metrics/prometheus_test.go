package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.PositionsOpened.Inc()
	prom.Metrics.PositionsClosed.Inc()
	prom.Metrics.QuotesRejected.Inc()
	prom.Metrics.FeedErrors.Inc()

	assertCounter(t, prom.positionsOpened, 1)
	assertCounter(t, prom.positionsClosed, 1)
	assertCounter(t, prom.quotesRejected, 1)
	assertCounter(t, prom.feedErrors, 1)
}

func assertCounter(t *testing.T, counter prometheus.Counter, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(counter); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
