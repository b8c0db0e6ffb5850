package orderbook

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateOrder = errors.New("order already resting")
	ErrInvalidSide    = errors.New("invalid order side")
	ErrInvalidQty     = errors.New("invalid order quantity")
	ErrInvalidPrice   = errors.New("invalid order price")
)

// InconsistencyError means the index and the side books disagree. It is never
// returned to callers: the book panics with it.
type InconsistencyError struct {
	OrderID uint64
	Side    Side
	Price   int64
	Reason  string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("orderbook inconsistency: order %d (%s @ %d): %s", e.OrderID, e.Side, e.Price, e.Reason)
}

func inconsistent(id uint64, loc location, reason string) {
	panic(&InconsistencyError{OrderID: id, Side: loc.side, Price: loc.price, Reason: reason})
}
