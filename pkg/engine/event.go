package engine

import (
	"fmt"

	"github.com/joripage/matching-engine/pkg/orderbook"
)

type EventKind uint8

const (
	EventAdd EventKind = iota + 1
	EventCancel
	EventTrade
)

func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "ADD"
	case EventCancel:
		return "CANCEL"
	case EventTrade:
		return "TRADE"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is a plain value; it never refers to a live order.
//
//	EventAdd:    OrderID, Side, Qty, Price as submitted
//	EventCancel: OrderID, Side, Qty resting when removed, Price
//	EventTrade:  AggressorID, PassiveID, Qty, Price of the passive order
type Event struct {
	Kind        EventKind
	OrderID     uint64
	Side        orderbook.Side
	Qty         int64
	Price       int64
	AggressorID uint64
	PassiveID   uint64
}

// String renders the event as an output record line.
func (e Event) String() string {
	switch e.Kind {
	case EventAdd:
		return fmt.Sprintf("%s %d %d %d", e.Side, e.Qty, e.Price, e.OrderID)
	case EventCancel:
		return fmt.Sprintf("CANCEL %d %d", e.OrderID, e.Qty)
	case EventTrade:
		return fmt.Sprintf("TRADE %d %d %d %d", e.AggressorID, e.PassiveID, e.Qty, e.Price)
	}
	return e.Kind.String()
}

// EventSink receives events synchronously, in emission order.
type EventSink interface {
	OnEvent(ev Event)
}

type SinkFunc func(ev Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

type nopSink struct{}

func (nopSink) OnEvent(Event) {}

// Recorder keeps every event it receives.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnEvent(ev Event) {
	r.Events = append(r.Events, ev)
}

// Lines returns the recorded events in their text form.
func (r *Recorder) Lines() []string {
	out := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.String())
	}
	return out
}

func (r *Recorder) Reset() {
	r.Events = r.Events[:0]
}
