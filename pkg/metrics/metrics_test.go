package metrics

import (
	"testing"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("matching", reg)
	e := engine.New(engine.WithSink(c), engine.WithObserver(c))

	require.NoError(t, e.AddOrder(1, orderbook.BUY, 10, 100))
	require.NoError(t, e.AddOrder(2, orderbook.SELL, 4, 100))
	require.NoError(t, e.AddOrder(3, orderbook.SELL, 2, 101))
	require.Error(t, e.AddOrder(4, orderbook.SELL, 0, 101))
	require.NoError(t, e.ReviseOrder(99, 1, 1))
	assert.False(t, e.CancelOrder(98))
	require.True(t, e.CancelOrder(3))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("cancel", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unknown.WithLabelValues("revise")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unknown.WithLabelValues("cancel")))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.events.WithLabelValues("ADD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("TRADE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("CANCEL")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.tradedQty))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resting))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestCollectorWithoutRegistry(t *testing.T) {
	c := NewCollector("x", nil)
	c.OnEvent(engine.Event{Kind: engine.EventTrade, Qty: 7})
	assert.Equal(t, 7.0, testutil.ToFloat64(c.tradedQty))
}
