package plan

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/promopay/promopay/errs"
	"github.com/promopay/promopay/internal/money"
)

// Instrument is a payment method carrying a percentage discount and a
// spending limit. The remaining-limit/total-spent pair forms its ledger
// balance; after every mutation remaining + spent == limit holds.
type Instrument struct {
	ID              string
	DiscountPercent int

	limit          decimal.Decimal
	remainingLimit decimal.Decimal
	totalSpent     decimal.Decimal
}

// NewInstrument validates and constructs an instrument. The limit is
// normalized to two fractional digits and fixed for the instrument's lifetime.
func NewInstrument(id string, discountPercent int, limit decimal.Decimal) (*Instrument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.New("plan/instrument", errs.CodeValidation, errs.WithMessage("instrument id is missing"))
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, errs.New("plan/instrument", errs.CodeValidation,
			errs.WithMessage("discount must be within 0-100 for instrument "+id))
	}
	if limit.IsNegative() {
		return nil, errs.New("plan/instrument", errs.CodeValidation,
			errs.WithMessage("limit must be non-negative for instrument "+id))
	}
	normalized := money.Normalize(limit)
	return &Instrument{
		ID:              id,
		DiscountPercent: discountPercent,
		limit:           normalized,
		remainingLimit:  normalized,
		totalSpent:      decimal.Zero,
	}, nil
}

// Limit returns the instrument's original capacity.
func (in *Instrument) Limit() decimal.Decimal { return in.limit }

// Remaining returns the mutable ledger balance still available for spending.
func (in *Instrument) Remaining() decimal.Decimal { return in.remainingLimit }

// Spent returns the total amount debited from the instrument so far.
func (in *Instrument) Spent() decimal.Decimal { return in.totalSpent }

// addSpent credits the spend accumulator. Negative amounts are ignored.
func (in *Instrument) addSpent(amount decimal.Decimal) {
	if amount.IsNegative() {
		return
	}
	in.totalSpent = in.totalSpent.Add(amount)
}

// deductLimit debits the remaining limit. Negative amounts are ignored.
// Sufficiency is the caller's responsibility; no bound check happens here.
func (in *Instrument) deductLimit(amount decimal.Decimal) {
	if amount.IsNegative() {
		return
	}
	in.remainingLimit = in.remainingLimit.Sub(amount)
}

// restoreLimit reverts a prior deductLimit. Non-positive amounts are ignored.
func (in *Instrument) restoreLimit(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	in.remainingLimit = in.remainingLimit.Add(amount)
}

// subtractSpent reverts a prior addSpent. Non-positive amounts are ignored.
func (in *Instrument) subtractSpent(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	in.totalSpent = in.totalSpent.Sub(amount)
}
