// Package command turns input records into engine calls.
//
//	<id> BUY <qty> <price>
//	<id> SELL <qty> <price>
//	<id> REVISE <qty> <price>
//	<id> CANCEL
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
)

type Type string

const (
	Buy    Type = "BUY"
	Sell   Type = "SELL"
	Revise Type = "REVISE"
	Cancel Type = "CANCEL"
)

type Command struct {
	OrderID uint64
	Type    Type
	Qty     int64
	Price   int64
}

func (c Command) String() string {
	if c.Type == Cancel {
		return fmt.Sprintf("%d %s", c.OrderID, c.Type)
	}
	return fmt.Sprintf("%d %s %d %d", c.OrderID, c.Type, c.Qty, c.Price)
}

// Parse reads one record. Trailing tokens are ignored.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("%w: order id %q", ErrMalformed, fields[0])
	}

	cmd := Command{OrderID: id, Type: Type(fields[1])}
	switch cmd.Type {
	case Cancel:
		return cmd, nil
	case Buy, Sell, Revise:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[1])
	}

	if len(fields) < 4 {
		return Command{}, fmt.Errorf("%w: %s needs qty and price: %q", ErrMalformed, cmd.Type, line)
	}
	if cmd.Qty, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return Command{}, fmt.Errorf("%w: qty %q", ErrMalformed, fields[2])
	}
	if cmd.Price, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
		return Command{}, fmt.Errorf("%w: price %q", ErrMalformed, fields[3])
	}
	return cmd, nil
}

// Apply runs the command against e.
func (c Command) Apply(e *engine.Engine) error {
	switch c.Type {
	case Buy:
		return e.AddOrder(c.OrderID, orderbook.BUY, c.Qty, c.Price)
	case Sell:
		return e.AddOrder(c.OrderID, orderbook.SELL, c.Qty, c.Price)
	case Revise:
		return e.ReviseOrder(c.OrderID, c.Qty, c.Price)
	case Cancel:
		e.CancelOrder(c.OrderID)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
}
