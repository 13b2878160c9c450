package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Side direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide converts user or payload text into a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long", "b":
		return SideBuy, nil
	case "sell", "short", "s":
		return SideSell, nil
	default:
		return "", errors.Errorf("unknown order side %q", s)
	}
}

// Order a market order for a whole number of units.
type Order struct {
	Symbol   string `json:"symbol"`
	Side     Side   `json:"-"`
	Quantity int64  `json:"quantity"`
}

// String returns a human-readable string representation.
func (o Order) String() string {
	return fmt.Sprintf("%s %d %s", o.Side, o.Quantity, o.Symbol)
}

// Ack backend acknowledgment of an executed order.
type Ack struct {
	OrderID string
	Message string
}
