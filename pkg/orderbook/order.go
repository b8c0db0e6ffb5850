package orderbook

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

func (s Side) Valid() bool {
	return s == BUY || s == SELL
}

// Opposite returns the counter side. It panics on an invalid side.
func (s Side) Opposite() Side {
	switch s {
	case BUY:
		return SELL
	case SELL:
		return BUY
	}
	panic("orderbook: invalid side " + string(s))
}

// Order is a resting limit order. Price is in integer ticks.
type Order struct {
	ID    uint64
	Side  Side
	Price int64
	Qty   int64 // remaining
}

// location is what the index keeps for a resting order: never a pointer,
// always resolved again through the side book.
type location struct {
	side  Side
	price int64
}
