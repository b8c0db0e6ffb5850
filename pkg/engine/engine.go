package engine

import (
	"fmt"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"go.uber.org/zap"
)

type Op string

const (
	OpAdd    Op = "add"
	OpRevise Op = "revise"
	OpCancel Op = "cancel"
)

// Observer is told about the outcome of every public operation.
type Observer interface {
	Applied(op Op, resting int)
	Rejected(op Op, orderID uint64, err error)
	UnknownOrder(op Op, orderID uint64)
}

type nopObserver struct{}

func (nopObserver) Applied(Op, int)            {}
func (nopObserver) Rejected(Op, uint64, error) {}
func (nopObserver) UnknownOrder(Op, uint64)    {}

// Engine matches a single instrument under price-time priority.
//
// Every call runs to completion, crossing included, before it returns. Engine
// is not safe for concurrent use: feed it from one goroutine, see
// pkg/sequencer.
type Engine struct {
	book     *orderbook.Book
	sink     EventSink
	observer Observer
	logger   *zap.Logger
}

type Option func(*Engine)

func WithSink(sink EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		book:     orderbook.NewBook(),
		sink:     nopSink{},
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Book exposes the resting state for read-only queries.
func (e *Engine) Book() *orderbook.Book {
	return e.book
}

// AddOrder rests a new order, acknowledges it and crosses the book.
func (e *Engine) AddOrder(id uint64, side orderbook.Side, qty, price int64) error {
	if !side.Valid() {
		return e.reject(OpAdd, id, fmt.Errorf("add order %d: %w", id, ErrInvalidSide))
	}
	if err := validate(qty, price); err != nil {
		return e.reject(OpAdd, id, fmt.Errorf("add order %d: %w", id, err))
	}
	if e.book.Has(id) {
		return e.reject(OpAdd, id, fmt.Errorf("add order %d: %w", id, ErrDuplicateOrder))
	}

	e.add(orderbook.Order{ID: id, Side: side, Qty: qty, Price: price})
	e.observer.Applied(OpAdd, e.book.Len())
	return nil
}

// ReviseOrder replaces a resting order with a new one under the same id and
// side. The replacement always queues behind existing orders at its price.
// Unknown ids are ignored.
func (e *Engine) ReviseOrder(id uint64, qty, price int64) error {
	cur, ok := e.book.Lookup(id)
	if !ok {
		e.unknown(OpRevise, id)
		return nil
	}
	if err := validate(qty, price); err != nil {
		return e.reject(OpRevise, id, fmt.Errorf("revise order %d: %w", id, err))
	}

	e.cancel(id)
	e.add(orderbook.Order{ID: id, Side: cur.Side, Qty: qty, Price: price})
	e.observer.Applied(OpRevise, e.book.Len())
	return nil
}

// CancelOrder removes a resting order. It reports whether anything was
// removed; unknown ids are ignored.
func (e *Engine) CancelOrder(id uint64) bool {
	if !e.cancel(id) {
		e.unknown(OpCancel, id)
		return false
	}
	e.observer.Applied(OpCancel, e.book.Len())
	return true
}

func validate(qty, price int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (e *Engine) add(o orderbook.Order) {
	if err := e.book.Insert(o); err != nil {
		// validated above; a failure here means the book is corrupt
		panic(&InconsistencyError{OrderID: o.ID, Side: o.Side, Price: o.Price, Reason: err.Error()})
	}
	e.sink.OnEvent(Event{Kind: EventAdd, OrderID: o.ID, Side: o.Side, Qty: o.Qty, Price: o.Price})
	e.cross(o.Side)
}

func (e *Engine) cancel(id uint64) bool {
	o, ok := e.book.Remove(id)
	if !ok {
		return false
	}
	e.sink.OnEvent(Event{Kind: EventCancel, OrderID: o.ID, Side: o.Side, Qty: o.Qty, Price: o.Price})
	return true
}

func (e *Engine) cross(aggressor orderbook.Side) {
	for e.matchOnce(aggressor) {
	}
}

// matchOnce trades the two front orders if the book is crossed.
func (e *Engine) matchOnce(aggressor orderbook.Side) bool {
	bid, ok := e.book.BestLevel(orderbook.BUY)
	if !ok {
		return false
	}
	ask, ok := e.book.BestLevel(orderbook.SELL)
	if !ok {
		return false
	}
	if bid.Price() < ask.Price() {
		return false
	}

	aggrLevel, passiveLevel := bid, ask
	if aggressor == orderbook.SELL {
		aggrLevel, passiveLevel = ask, bid
	}
	aggr, passive := aggrLevel.Front(), passiveLevel.Front()
	qty := min(aggr.Qty, passive.Qty)

	e.book.FillFront(aggressor, qty)
	e.book.FillFront(aggressor.Opposite(), qty)

	e.sink.OnEvent(Event{
		Kind:        EventTrade,
		AggressorID: aggr.ID,
		PassiveID:   passive.ID,
		Qty:         qty,
		Price:       passive.Price,
	})
	return true
}

func (e *Engine) reject(op Op, id uint64, err error) error {
	e.logger.Warn("order rejected", zap.String("op", string(op)), zap.Uint64("order_id", id), zap.Error(err))
	e.observer.Rejected(op, id, err)
	return err
}

func (e *Engine) unknown(op Op, id uint64) {
	e.logger.Debug("unknown order reference", zap.String("op", string(op)), zap.Uint64("order_id", id))
	e.observer.UnknownOrder(op, id)
}
