package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
)

const (
	minPrice = 100
	maxPrice = 200
	minQty   = 1
	maxQty   = 100
)

// step sends one random add, revise or cancel. Roughly one in five operations
// targets an id that may already be gone.
func step(r *rand.Rand, e *engine.Engine, id uint64) {
	switch n := r.Intn(10); {
	case n < 7 || id < 2:
		side := orderbook.BUY
		if r.Intn(2) == 0 {
			side = orderbook.SELL
		}
		_ = e.AddOrder(id, side, int64(r.Intn(maxQty-minQty+1)+minQty), int64(r.Intn(maxPrice-minPrice+1)+minPrice))
	case n < 9:
		_ = e.ReviseOrder(uint64(r.Int63n(int64(id))+1), int64(r.Intn(maxQty)+1), int64(r.Intn(maxPrice-minPrice+1)+minPrice))
	default:
		e.CancelOrder(uint64(r.Int63n(int64(id)) + 1))
	}
}

func main() {
	numOps := flag.Int("n", 1_000_000, "number of operations")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	var trades, tradedQty, cancels int64
	e := engine.New(engine.WithSink(engine.SinkFunc(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventTrade:
			trades++
			tradedQty += ev.Qty
			if trades <= 5 {
				fmt.Printf("Match: %s\n", ev)
			}
		case engine.EventCancel:
			cancels++
		}
	})))

	r := rand.New(rand.NewSource(*seed))
	start := time.Now()
	for i := 0; i < *numOps; i++ {
		step(r, e, uint64(i+1))
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Seed              : %d\n", *seed)
	fmt.Printf("Total Operations  : %d\n", *numOps)
	fmt.Printf("Total Trades      : %d\n", trades)
	fmt.Printf("Total Traded Qty  : %d\n", tradedQty)
	fmt.Printf("Total Cancels     : %d\n", cancels)
	fmt.Printf("Resting Orders    : %d\n", e.Book().Len())
	fmt.Printf("Time Taken        : %s\n", elapsed)
	fmt.Printf("Throughput        : %.0f ops/sec\n", float64(*numOps)/elapsed.Seconds())
}
