// file: pkg/orderbook/orderbook.go

package orderbook

// Book is the resting state of a single instrument: one side book per side
// plus the order index. Every mutation keeps the three in step.
//
// Book is not safe for concurrent use; it is owned by one matching goroutine.
type Book struct {
	bids  *sideBook
	asks  *sideBook
	index map[uint64]location
}

// LevelDepth is an aggregated view of one price level.
type LevelDepth struct {
	Price  int64
	Qty    int64
	Orders int
}

func NewBook() *Book {
	return &Book{
		bids:  newSideBook(BUY),
		asks:  newSideBook(SELL),
		index: make(map[uint64]location),
	}
}

func (b *Book) side(s Side) *sideBook {
	if s == BUY {
		return b.bids
	}
	return b.asks
}

// Insert appends order to the back of its (side, price) level.
func (b *Book) Insert(order Order) error {
	if !order.Side.Valid() {
		return ErrInvalidSide
	}
	if order.Qty <= 0 {
		return ErrInvalidQty
	}
	if order.Price <= 0 {
		return ErrInvalidPrice
	}
	if _, ok := b.index[order.ID]; ok {
		return ErrDuplicateOrder
	}

	o := order
	b.side(order.Side).upsert(order.Price).pushBack(&o)
	b.index[order.ID] = location{side: order.Side, price: order.Price}
	return nil
}

// Remove takes the order out of the book and returns it as it was resting.
// Unknown ids are a no-op.
func (b *Book) Remove(id uint64) (Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return Order{}, false
	}

	sb := b.side(loc.side)
	lvl, ok := sb.get(loc.price)
	if !ok {
		inconsistent(id, loc, "indexed level does not exist")
	}
	o, ok := lvl.remove(id)
	if !ok {
		inconsistent(id, loc, "order missing from indexed level")
	}
	sb.prune(lvl)
	delete(b.index, id)

	return *o, true
}

// BestLevel returns the level with priority on side s.
func (b *Book) BestLevel(s Side) (*PriceLevel, bool) {
	return b.side(s).best()
}

// FillFront takes qty off the front order of the best level on side s. A
// filled order leaves the book and the index; an emptied level is pruned.
// It returns the order after the fill.
func (b *Book) FillFront(s Side, qty int64) Order {
	sb := b.side(s)
	lvl, ok := sb.best()
	if !ok {
		panic(&InconsistencyError{Side: s, Reason: "fill on empty side"})
	}

	front := lvl.orders.Front()
	if qty <= 0 || qty > front.Qty {
		inconsistent(front.ID, location{side: s, price: lvl.price}, "fill exceeds resting quantity")
	}
	if _, ok := b.index[front.ID]; !ok {
		inconsistent(front.ID, location{side: s, price: lvl.price}, "resting order not indexed")
	}

	front.Qty -= qty
	lvl.volume -= qty
	filled := *front
	if front.Qty == 0 {
		lvl.popFront()
		delete(b.index, front.ID)
		sb.prune(lvl)
	}
	return filled
}

// Lookup returns a copy of the resting order with the given id.
func (b *Book) Lookup(id uint64) (Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return Order{}, false
	}
	lvl, ok := b.side(loc.side).get(loc.price)
	if !ok {
		inconsistent(id, loc, "indexed level does not exist")
	}
	found, ok := lvl.find(id)
	if !ok {
		inconsistent(id, loc, "order missing from indexed level")
	}
	return *found, true
}

// Has reports whether an order with the given id rests on the book.
func (b *Book) Has(id uint64) bool {
	_, ok := b.index[id]
	return ok
}

// Len is the number of resting orders on both sides.
func (b *Book) Len() int {
	return len(b.index)
}

// Levels is the number of price levels on side s.
func (b *Book) Levels(s Side) int {
	return b.side(s).size()
}

// Empty reports whether side s holds no order.
func (b *Book) Empty(s Side) bool {
	return b.side(s).empty()
}

// Depth aggregates up to n levels of side s, best first. n <= 0 means all.
func (b *Book) Depth(s Side, n int) []LevelDepth {
	var out []LevelDepth
	b.side(s).walk(func(lvl *PriceLevel) bool {
		out = append(out, LevelDepth{Price: lvl.price, Qty: lvl.volume, Orders: lvl.Len()})
		return n <= 0 || len(out) < n
	})
	return out
}

// Orders lists the resting orders of side s in priority order.
func (b *Book) Orders(s Side) []Order {
	var out []Order
	b.side(s).walk(func(lvl *PriceLevel) bool {
		lvl.each(func(o *Order) {
			out = append(out, *o)
		})
		return true
	})
	return out
}
