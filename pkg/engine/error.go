package engine

import (
	"errors"

	"github.com/joripage/matching-engine/pkg/orderbook"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidSide     = orderbook.ErrInvalidSide
	ErrDuplicateOrder  = orderbook.ErrDuplicateOrder
)

// InconsistencyError is the panic value raised when the book and its index
// disagree.
type InconsistencyError = orderbook.InconsistencyError
