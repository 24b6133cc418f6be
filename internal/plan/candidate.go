package plan

import "github.com/shopspring/decimal"

// Candidate is a proposed pairing of an order with a discounted instrument,
// produced during the engine's enumeration pass and discarded after
// application. Amount is what the instrument would pay after discount;
// Discount is the savings relative to the order's full value.
type Candidate struct {
	Order      *Order
	Instrument *Instrument
	Amount     decimal.Decimal
	Discount   decimal.Decimal
}
