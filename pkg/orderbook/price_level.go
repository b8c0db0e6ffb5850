package orderbook

import "github.com/gammazero/deque"

// PriceLevel holds every resting order of one side at one price, oldest first.
type PriceLevel struct {
	price  int64
	volume int64
	orders deque.Deque[*Order]
}

func newPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{price: price}
}

func (l *PriceLevel) Price() int64 { return l.price }

// Volume is the sum of remaining quantity at this level.
func (l *PriceLevel) Volume() int64 { return l.volume }

func (l *PriceLevel) Len() int { return l.orders.Len() }

// Front returns a copy of the order with time priority at this level.
func (l *PriceLevel) Front() Order {
	return *l.orders.Front()
}

func (l *PriceLevel) pushBack(o *Order) {
	l.orders.PushBack(o)
	l.volume += o.Qty
}

func (l *PriceLevel) popFront() *Order {
	o := l.orders.PopFront()
	l.volume -= o.Qty
	return o
}

// find returns the order with the given id, stopping at the first match.
func (l *PriceLevel) find(id uint64) (*Order, bool) {
	i := l.orders.Index(func(o *Order) bool { return o.ID == id })
	if i < 0 {
		return nil, false
	}
	return l.orders.At(i), true
}

// remove erases the order with the given id, keeping the others in arrival order.
func (l *PriceLevel) remove(id uint64) (*Order, bool) {
	i := l.orders.Index(func(o *Order) bool { return o.ID == id })
	if i < 0 {
		return nil, false
	}
	o := l.orders.Remove(i)
	l.volume -= o.Qty
	return o, true
}

func (l *PriceLevel) each(fn func(o *Order)) {
	for i := 0; i < l.orders.Len(); i++ {
		fn(l.orders.At(i))
	}
}
