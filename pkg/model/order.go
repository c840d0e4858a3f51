package model

import (
	"errors"
	"fmt"
)

type Side string
type OrderType string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"

	GTC OrderType = "GOOD_TILL_CANCEL"
	FAK OrderType = "FILL_AND_KILL"
)

// Order is the mutable execution state of a single order. Remaining
// only ever decreases, via Fill; the order is filled once Remaining
// reaches zero.
type Order struct {
	ID        string    `json:"order_id,omitempty"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     int64     `json:"price"` // integer cents
	Quantity  int64     `json:"quantity"`
	Remaining int64     `json:"remaining"`
	Timestamp int64     `json:"timestamp,omitempty"` // unix ms
}

// NewOrder constructs an order with Remaining set to the full quantity.
func NewOrder(id, symbol string, side Side, typ OrderType, price, quantity int64) *Order {
	return &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
	}
}

// OverfillError reports an attempt to fill an order beyond its
// remaining quantity. It signals a bug in the matching loop's quantity
// computation: once it occurs the book state cannot be trusted, so it
// is surfaced to the caller of the mutating operation rather than
// absorbed.
type OverfillError struct {
	OrderID   string
	Requested int64
	Remaining int64
}

func (e *OverfillError) Error() string {
	return fmt.Sprintf("order %s: fill of %d exceeds remaining quantity %d",
		e.OrderID, e.Requested, e.Remaining)
}

// Fill decrements the remaining quantity by qty.
func (o *Order) Fill(qty int64) error {
	if qty > o.Remaining {
		return &OverfillError{OrderID: o.ID, Requested: qty, Remaining: o.Remaining}
	}
	o.Remaining -= qty
	return nil
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Filled returns the executed quantity so far.
func (o *Order) Filled() int64 {
	return o.Quantity - o.Remaining
}

// Validate checks basic syntactic correctness of the order.
// It does NOT perform business checks like available liquidity.
func (o *Order) Validate() error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.Symbol == "" {
		return errors.New("symbol is required")
	}
	if o.Side != BUY && o.Side != SELL {
		return errors.New("invalid side: must be BUY or SELL")
	}
	if o.Type != GTC && o.Type != FAK {
		return errors.New("invalid type: must be GOOD_TILL_CANCEL or FILL_AND_KILL")
	}
	if o.Quantity <= 0 {
		return errors.New("quantity must be > 0")
	}
	if o.Price <= 0 {
		return errors.New("price must be > 0 (in cents)")
	}
	return nil
}
