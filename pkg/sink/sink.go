// Package sink delivers engine events to writers and brokers.
package sink

import (
	"github.com/joripage/matching-engine/pkg/engine"
)

// Record is the structured form of an event.
type Record struct {
	Seq         uint64 `json:"seq"`
	Type        string `json:"type"`
	OrderID     uint64 `json:"order_id,omitempty"`
	Side        string `json:"side,omitempty"`
	Qty         int64  `json:"qty"`
	Price       int64  `json:"price"`
	AggressorID uint64 `json:"aggressor_id,omitempty"`
	PassiveID   uint64 `json:"passive_id,omitempty"`
}

func NewRecord(seq uint64, ev engine.Event) Record {
	r := Record{
		Seq:   seq,
		Type:  ev.Kind.String(),
		Qty:   ev.Qty,
		Price: ev.Price,
	}
	switch ev.Kind {
	case engine.EventTrade:
		r.AggressorID = ev.AggressorID
		r.PassiveID = ev.PassiveID
	default:
		r.OrderID = ev.OrderID
		r.Side = string(ev.Side)
	}
	return r
}

// Key is the partition key of an event: the order it concerns, or the
// aggressor for trades.
func Key(ev engine.Event) uint64 {
	if ev.Kind == engine.EventTrade {
		return ev.AggressorID
	}
	return ev.OrderID
}

// Multi fans every event out to each sink in order.
type Multi []engine.EventSink

func (m Multi) OnEvent(ev engine.Event) {
	for _, s := range m {
		s.OnEvent(ev)
	}
}
