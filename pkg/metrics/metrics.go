// Package metrics exports engine activity to Prometheus.
package metrics

import (
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is both an engine.Observer and an engine.EventSink.
type Collector struct {
	operations *prometheus.CounterVec
	unknown    *prometheus.CounterVec
	events     *prometheus.CounterVec
	tradedQty  prometheus.Counter
	resting    prometheus.Gauge
}

func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Engine operations by outcome.",
			},
			[]string{"op", "result"}, // result: applied/rejected/unknown
		),
		unknown: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unknown_order_total",
				Help:      "Revise or cancel requests for ids not resting on the book.",
			},
			[]string{"op"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Events emitted by kind.",
			},
			[]string{"kind"},
		),
		tradedQty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Sum of traded quantity.",
		}),
		resting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders resting on the book after the last operation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.operations, c.unknown, c.events, c.tradedQty, c.resting)
	}
	return c
}

func (c *Collector) Applied(op engine.Op, resting int) {
	c.operations.WithLabelValues(string(op), "applied").Inc()
	c.resting.Set(float64(resting))
}

func (c *Collector) Rejected(op engine.Op, _ uint64, _ error) {
	c.operations.WithLabelValues(string(op), "rejected").Inc()
}

func (c *Collector) UnknownOrder(op engine.Op, _ uint64) {
	c.operations.WithLabelValues(string(op), "unknown").Inc()
	c.unknown.WithLabelValues(string(op)).Inc()
}

func (c *Collector) OnEvent(ev engine.Event) {
	c.events.WithLabelValues(ev.Kind.String()).Inc()
	if ev.Kind == engine.EventTrade {
		c.tradedQty.Add(float64(ev.Qty))
	}
}
