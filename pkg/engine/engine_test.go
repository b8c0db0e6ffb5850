package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/joripage/matching-engine/pkg/orderbook"
)

func newTestEngine() (*Engine, *Recorder) {
	rec := &Recorder{}
	return New(WithSink(rec)), rec
}

func expectLines(t *testing.T, rec *Recorder, want ...string) {
	t.Helper()
	got := rec.Lines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected events\n got: %q\nwant: %q", got, want)
	}
}

func expectResting(t *testing.T, e *Engine, id uint64, qty, price int64) {
	t.Helper()
	o, ok := e.Book().Lookup(id)
	if !ok {
		t.Fatalf("expected order %d to rest", id)
	}
	if o.Qty != qty || o.Price != price {
		t.Fatalf("expected order %d to rest %d@%d, got %d@%d", id, qty, price, o.Qty, o.Price)
	}
}

func TestFullCross(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 10, 100)
	_ = e.AddOrder(2, orderbook.SELL, 10, 100)

	expectLines(t, rec,
		"BUY 10 100 1",
		"SELL 10 100 2",
		"TRADE 2 1 10 100",
	)
	if e.Book().Len() != 0 || !e.Book().Empty(orderbook.BUY) || !e.Book().Empty(orderbook.SELL) {
		t.Fatalf("expected both sides empty")
	}
}

func TestTradeAtPassivePrice(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	rec.Reset()
	_ = e.AddOrder(2, orderbook.SELL, 10, 99)

	expectLines(t, rec,
		"SELL 10 99 2",
		"TRADE 2 1 5 100",
	)
	expectResting(t, e, 2, 5, 99)
}

func TestReviseEmitsCancelThenAdd(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	rec.Reset()

	if err := e.ReviseOrder(1, 8, 101); err != nil {
		t.Fatalf("revise: %v", err)
	}
	expectLines(t, rec,
		"CANCEL 1 5",
		"BUY 8 101 1",
	)
	expectResting(t, e, 1, 8, 101)
}

func TestCancelUnknownIsSilent(t *testing.T) {
	e, rec := newTestEngine()
	if e.CancelOrder(999) {
		t.Fatalf("cancel of unknown order reported success")
	}
	if len(rec.Events) != 0 {
		t.Fatalf("expected no events, got %v", rec.Lines())
	}
}

func TestSweepSamePriceFIFO(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(10, orderbook.SELL, 3, 50)
	_ = e.AddOrder(11, orderbook.SELL, 4, 50)
	_ = e.AddOrder(12, orderbook.BUY, 10, 50)

	expectLines(t, rec,
		"SELL 3 50 10",
		"SELL 4 50 11",
		"BUY 10 50 12",
		"TRADE 12 10 3 50",
		"TRADE 12 11 4 50",
	)
	expectResting(t, e, 12, 3, 50)
	if e.Book().Len() != 1 {
		t.Fatalf("expected only order 12 to rest, have %d", e.Book().Len())
	}
}

func TestSweepAcrossLevels(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.SELL, 5, 101)
	_ = e.AddOrder(2, orderbook.SELL, 5, 103)
	_ = e.AddOrder(3, orderbook.SELL, 5, 102)
	rec.Reset()

	_ = e.AddOrder(4, orderbook.BUY, 12, 105)
	expectLines(t, rec,
		"BUY 12 105 4",
		"TRADE 4 1 5 101",
		"TRADE 4 3 5 102",
		"TRADE 4 2 2 103",
	)
	expectResting(t, e, 2, 3, 103)
}

func TestCancelReportsRestingQty(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.SELL, 10, 100)
	_ = e.AddOrder(2, orderbook.BUY, 4, 100)
	rec.Reset()

	if !e.CancelOrder(1) {
		t.Fatalf("expected cancel success")
	}
	expectLines(t, rec, "CANCEL 1 6")
	if e.CancelOrder(1) {
		t.Fatalf("second cancel should be a no-op")
	}
}

func TestReviseLosesTimePriority(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.SELL, 5, 100)
	_ = e.AddOrder(2, orderbook.SELL, 5, 100)

	// same price and quantity, still goes to the back
	_ = e.ReviseOrder(1, 5, 100)
	rec.Reset()

	_ = e.AddOrder(3, orderbook.BUY, 5, 100)
	expectLines(t, rec,
		"BUY 5 100 3",
		"TRADE 3 2 5 100",
	)
	expectResting(t, e, 1, 5, 100)
}

func TestReviseKeepsSide(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.SELL, 5, 100)
	_ = e.AddOrder(2, orderbook.BUY, 5, 90)
	rec.Reset()

	// a sell revised through the bid trades as the aggressor
	_ = e.ReviseOrder(1, 2, 90)
	expectLines(t, rec,
		"CANCEL 1 5",
		"SELL 2 90 1",
		"TRADE 1 2 2 90",
	)
	expectResting(t, e, 2, 3, 90)
}

func TestReviseUnknownIsSilent(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	rec.Reset()

	if err := e.ReviseOrder(2, 8, 101); err != nil {
		t.Fatalf("revise of unknown order should not fail: %v", err)
	}
	if len(rec.Events) != 0 {
		t.Fatalf("expected no events, got %v", rec.Lines())
	}
	expectResting(t, e, 1, 5, 100)
}

func TestReviseAfterFill(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	_ = e.AddOrder(2, orderbook.SELL, 5, 100)
	rec.Reset()

	_ = e.ReviseOrder(1, 3, 100)
	e.CancelOrder(2)
	if len(rec.Events) != 0 {
		t.Fatalf("late revise/cancel should be dropped, got %v", rec.Lines())
	}
}

func TestAddRejects(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	rec.Reset()

	cases := []struct {
		name  string
		id    uint64
		side  orderbook.Side
		qty   int64
		price int64
		err   error
	}{
		{"zero qty", 2, orderbook.BUY, 0, 100, ErrInvalidQuantity},
		{"negative qty", 2, orderbook.SELL, -3, 100, ErrInvalidQuantity},
		{"zero price", 2, orderbook.SELL, 3, 0, ErrInvalidPrice},
		{"negative price", 2, orderbook.BUY, 3, -1, ErrInvalidPrice},
		{"bad side", 2, orderbook.Side("HOLD"), 3, 100, ErrInvalidSide},
		{"duplicate id", 1, orderbook.SELL, 3, 100, ErrDuplicateOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.AddOrder(tc.id, tc.side, tc.qty, tc.price)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if len(rec.Events) != 0 {
				t.Fatalf("rejected add emitted %v", rec.Lines())
			}
			if e.Book().Len() != 1 {
				t.Fatalf("rejected add mutated the book")
			}
		})
	}
}

func TestReviseRejectsWithoutCancel(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	rec.Reset()

	if err := e.ReviseOrder(1, 0, 100); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if len(rec.Events) != 0 {
		t.Fatalf("rejected revise emitted %v", rec.Lines())
	}
	expectResting(t, e, 1, 5, 100)
}

func TestIDReuseAfterFill(t *testing.T) {
	e, rec := newTestEngine()
	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	_ = e.AddOrder(2, orderbook.SELL, 5, 100)

	if err := e.AddOrder(1, orderbook.SELL, 2, 120); err != nil {
		t.Fatalf("id should be reusable after full fill: %v", err)
	}
	expectResting(t, e, 1, 2, 120)
	if n := len(rec.Events); n != 4 {
		t.Fatalf("expected 4 events, got %d", n)
	}
}

type countingObserver struct {
	applied  map[Op]int
	rejected map[Op]int
	unknown  map[Op]int
	resting  int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{applied: map[Op]int{}, rejected: map[Op]int{}, unknown: map[Op]int{}}
}

func (c *countingObserver) Applied(op Op, resting int) {
	c.applied[op]++
	c.resting = resting
}

func (c *countingObserver) Rejected(op Op, _ uint64, _ error) { c.rejected[op]++ }

func (c *countingObserver) UnknownOrder(op Op, _ uint64) { c.unknown[op]++ }

func TestObserver(t *testing.T) {
	obs := newCountingObserver()
	e := New(WithObserver(obs))

	_ = e.AddOrder(1, orderbook.BUY, 5, 100)
	_ = e.AddOrder(2, orderbook.BUY, 0, 100)
	_ = e.ReviseOrder(1, 6, 100)
	_ = e.ReviseOrder(7, 6, 100)
	e.CancelOrder(8)
	e.CancelOrder(1)

	if obs.applied[OpAdd] != 1 || obs.applied[OpRevise] != 1 || obs.applied[OpCancel] != 1 {
		t.Fatalf("unexpected applied counts %v", obs.applied)
	}
	if obs.rejected[OpAdd] != 1 {
		t.Fatalf("unexpected rejected counts %v", obs.rejected)
	}
	if obs.unknown[OpRevise] != 1 || obs.unknown[OpCancel] != 1 {
		t.Fatalf("unexpected unknown counts %v", obs.unknown)
	}
	if obs.resting != 0 {
		t.Fatalf("expected empty book after cancel, observer saw %d", obs.resting)
	}
}

// checkBook verifies the book is never crossed and never holds an empty level.
func checkBook(t *testing.T, e *Engine, step int) {
	t.Helper()
	bid, hasBid := e.Book().BestLevel(orderbook.BUY)
	ask, hasAsk := e.Book().BestLevel(orderbook.SELL)
	if hasBid && hasAsk && bid.Price() >= ask.Price() {
		t.Fatalf("step %d: book crossed, bid %d >= ask %d", step, bid.Price(), ask.Price())
	}
	for _, side := range []orderbook.Side{orderbook.BUY, orderbook.SELL} {
		for _, lvl := range e.Book().Depth(side, 0) {
			if lvl.Orders == 0 || lvl.Qty <= 0 {
				t.Fatalf("step %d: empty level %+v on %s", step, lvl, side)
			}
		}
	}
}

func TestRandomFlowInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e, rec := newTestEngine()

	var nextID uint64
	var live []uint64
	for step := 0; step < 5000; step++ {
		switch r := rng.Intn(10); {
		case r < 6 || len(live) == 0:
			nextID++
			side := orderbook.BUY
			if rng.Intn(2) == 0 {
				side = orderbook.SELL
			}
			_ = e.AddOrder(nextID, side, 1+rng.Int63n(20), 95+rng.Int63n(11))
			live = append(live, nextID)
		case r < 8:
			id := live[rng.Intn(len(live))]
			_ = e.ReviseOrder(id, 1+rng.Int63n(20), 95+rng.Int63n(11))
		default:
			id := live[rng.Intn(len(live))]
			e.CancelOrder(id)
		}
		checkBook(t, e, step)

		// unknown references never produce events
		bogus := nextID + 1000
		n := len(rec.Events)
		_ = e.ReviseOrder(bogus, 1, 100)
		e.CancelOrder(bogus)
		if len(rec.Events) != n {
			t.Fatalf("step %d: unknown reference produced events", step)
		}
	}

	// per id: submitted == traded + cancelled + resting
	submitted := map[uint64]int64{}
	settled := map[uint64]int64{}
	for _, ev := range rec.Events {
		switch ev.Kind {
		case EventAdd:
			submitted[ev.OrderID] += ev.Qty
		case EventCancel:
			settled[ev.OrderID] += ev.Qty
		case EventTrade:
			settled[ev.AggressorID] += ev.Qty
			settled[ev.PassiveID] += ev.Qty
		}
	}
	for _, side := range []orderbook.Side{orderbook.BUY, orderbook.SELL} {
		for _, o := range e.Book().Orders(side) {
			settled[o.ID] += o.Qty
		}
	}
	for id, qty := range submitted {
		if settled[id] != qty {
			t.Fatalf("order %d: submitted %d but accounted %d", id, qty, settled[id])
		}
	}
}

func TestTimePriorityProperty(t *testing.T) {
	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("%d_orders", n), func(t *testing.T) {
			e, rec := newTestEngine()
			for i := 1; i <= n; i++ {
				_ = e.AddOrder(uint64(i), orderbook.SELL, 2, 100)
			}
			rec.Reset()
			_ = e.AddOrder(1000, orderbook.BUY, int64(2*n), 100)

			trades := rec.Events[1:]
			if len(trades) != n {
				t.Fatalf("expected %d trades, got %d", n, len(trades))
			}
			for i, tr := range trades {
				if tr.PassiveID != uint64(i+1) {
					t.Fatalf("trade %d hit order %d, want %d", i, tr.PassiveID, i+1)
				}
			}
		})
	}
}

func BenchmarkAddOrder(b *testing.B) {
	e := New()
	for i := 0; i < 10_000; i++ {
		_ = e.AddOrder(uint64(i+1), orderbook.SELL, 10, 100+int64(i%5))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.AddOrder(uint64(20_000+i), orderbook.BUY, 10, 101)
	}
}
