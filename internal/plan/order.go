// Package plan defines the entities manipulated by the allocation engine:
// orders, payment instruments, the instrument ledger, and result snapshots.
package plan

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/promopay/promopay/errs"
	"github.com/promopay/promopay/internal/money"
)

// Order is a purchase order awaiting allocation to payment instruments.
type Order struct {
	ID         string
	Value      decimal.Decimal
	Promotions []string

	paid bool
}

// NewOrder validates and constructs an order. The value is normalized to two
// fractional digits at construction; the promotion list may be empty.
func NewOrder(id string, value decimal.Decimal, promotions []string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.New("plan/order", errs.CodeValidation, errs.WithMessage("order id is missing"))
	}
	if value.IsNegative() {
		return nil, errs.New("plan/order", errs.CodeValidation,
			errs.WithMessage("order value must be non-negative"), errs.WithOrderIDs(id))
	}
	promos := make([]string, len(promotions))
	copy(promos, promotions)
	return &Order{
		ID:         id,
		Value:      money.Normalize(value),
		Promotions: promos,
		paid:       false,
	}, nil
}

// Paid reports whether the order has been fully allocated.
func (o *Order) Paid() bool { return o.paid }

// MarkPaid flags the order as fully allocated. The flag is never reset.
func (o *Order) MarkPaid() { o.paid = true }

// HasPromotion reports whether the instrument id is in the order's promotion list.
func (o *Order) HasPromotion(id string) bool {
	for _, p := range o.Promotions {
		if p == id {
			return true
		}
	}
	return false
}
