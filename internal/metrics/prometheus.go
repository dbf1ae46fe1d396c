package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "basis_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	positionsOpened prometheus.Counter
	positionsClosed prometheus.Counter
	quotesRejected  prometheus.Counter
	feedErrors      prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	positionsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "positions_opened_total",
		Help:      "Total number of simulated positions opened.",
	})
	positionsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "positions_closed_total",
		Help:      "Total number of simulated positions closed.",
	})
	quotesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "quotes_rejected_total",
		Help:      "Total number of quote updates rejected by validation.",
	})
	feedErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "feed_errors_total",
		Help:      "Total number of transient feed fetch failures.",
	})

	registry.MustRegister(positionsOpened, positionsClosed, quotesRejected, feedErrors)

	m := &Metrics{
		PositionsOpened: promCounter{positionsOpened},
		PositionsClosed: promCounter{positionsClosed},
		QuotesRejected:  promCounter{quotesRejected},
		FeedErrors:      promCounter{feedErrors},
	}

	return &Prometheus{
		Metrics:         m,
		registry:        registry,
		positionsOpened: positionsOpened,
		positionsClosed: positionsClosed,
		quotesRejected:  quotesRejected,
		feedErrors:      feedErrors,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
