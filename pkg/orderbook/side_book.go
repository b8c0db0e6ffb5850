package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
)

// sideBook orders the price levels of one side so that the best price is
// always the leftmost node: descending for bids, ascending for asks.
type sideBook struct {
	levels *rbt.Tree[int64, *PriceLevel]
}

func newSideBook(side Side) *sideBook {
	var comparator func(a, b int64) int
	if side == BUY {
		comparator = func(a, b int64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			}
			return 0
		}
	} else {
		comparator = func(a, b int64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	}

	return &sideBook{levels: rbt.NewWith[int64, *PriceLevel](comparator)}
}

func (sb *sideBook) get(price int64) (*PriceLevel, bool) {
	return sb.levels.Get(price)
}

// upsert returns the level at price, creating it if absent.
func (sb *sideBook) upsert(price int64) *PriceLevel {
	if lvl, ok := sb.levels.Get(price); ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	sb.levels.Put(price, lvl)
	return lvl
}

// prune drops the level at price if it holds no order.
func (sb *sideBook) prune(lvl *PriceLevel) {
	if lvl.Len() == 0 {
		sb.levels.Remove(lvl.price)
	}
}

func (sb *sideBook) best() (*PriceLevel, bool) {
	node := sb.levels.Left()
	if node == nil {
		return nil, false
	}
	return node.Value, true
}

func (sb *sideBook) empty() bool {
	return sb.levels.Empty()
}

func (sb *sideBook) size() int {
	return sb.levels.Size()
}

// walk visits levels best first until fn returns false.
func (sb *sideBook) walk(fn func(lvl *PriceLevel) bool) {
	it := sb.levels.Iterator()
	for it.Next() {
		if !fn(it.Value()) {
			return
		}
	}
}
