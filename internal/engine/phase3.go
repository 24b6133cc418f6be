package engine

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/promopay/promopay/errs"
	"github.com/promopay/promopay/internal/money"
	"github.com/promopay/promopay/internal/observability"
	"github.com/promopay/promopay/internal/plan"
)

// allocateRemaining runs phase 3: one resolution task per unpaid order, each
// executing its strategy chain entirely under the mutation lock. A deadline
// overrun here is fatal; mutations applied by completed tasks stand.
func (e *Engine) allocateRemaining(ctx context.Context) (int, error) {
	unpaid := e.unpaidOrders()
	if len(unpaid) == 0 {
		e.log.Debug("no unpaid orders remain for fallback allocation")
		return 0, nil
	}

	phaseCtx, cancel := context.WithTimeout(ctx, e.phaseTimeout)
	defer cancel()

	var countMu sync.Mutex
	applied := 0

	workers := pool.New().WithMaxGoroutines(e.parallelism)
	for _, o := range unpaid {
		order := o
		workers.Go(func() {
			if phaseCtx.Err() != nil {
				return
			}
			e.mu.Lock()
			defer e.mu.Unlock()
			if phaseCtx.Err() != nil || order.Paid() {
				return
			}
			if e.resolveOrder(order) {
				countMu.Lock()
				applied++
				countMu.Unlock()
			}
		})
	}

	if !waitWithDeadline(phaseCtx, workers) {
		return applied, errs.New("engine/phase3", errs.CodeTimeout,
			errs.WithMessage("fallback allocation exceeded deadline"),
			errs.WithCause(phaseCtx.Err()))
	}
	return applied, nil
}

// resolveOrder tries the fallback strategies in order. Caller holds the
// mutation lock.
func (e *Engine) resolveOrder(order *plan.Order) bool {
	if e.points != nil && e.points.Remaining().IsPositive() {
		if e.payWithLeftoverPoints(order) {
			e.log.Debug("order resolved with leftover points", observability.F("order", order.ID))
			return true
		}
	}
	if e.payFullSingleCard(order) {
		e.log.Debug("order resolved with a single card", observability.F("order", order.ID))
		return true
	}
	if e.payMultiCard(order) {
		e.log.Debug("order resolved with a multi-card split", observability.F("order", order.ID))
		return true
	}
	if e.payUniversalFallback(order) {
		e.log.Debug("order resolved with the universal fallback", observability.F("order", order.ID))
		return true
	}
	e.log.Warn("no payment strategy found for order", observability.F("order", order.ID))
	return false
}

// payWithLeftoverPoints retries the full and partial points plans from phase
// 1, and additionally spends below-threshold leftovers without discount,
// covering the remainder with one card or a multi-card split. The points
// reservation rolls back when the remainder cannot be covered.
func (e *Engine) payWithLeftoverPoints(order *plan.Order) bool {
	if e.points.Remaining().GreaterThanOrEqual(order.Value) {
		return e.payFullWithPoints(order)
	}
	if e.points.Remaining().GreaterThanOrEqual(e.minPointsContribution(order.Value)) {
		return e.payPartialWithPoints(order)
	}

	// Below the discount threshold: spend what is left, no discount.
	pointsAmount := money.Min(e.points.Remaining(), order.Value)
	if !pointsAmount.IsPositive() {
		return false
	}
	remainder := order.Value.Sub(pointsAmount)

	tx := e.ledger.Begin()
	tx.Reserve(e.points, pointsAmount)

	if !remainder.IsPositive() {
		tx.Commit()
		order.MarkPaid()
		return true
	}
	if card := e.firstCardCovering(remainder); card != nil {
		tx.Reserve(card, remainder)
		tx.Commit()
		order.MarkPaid()
		return true
	}
	if legs, ok := e.planCardSplit(remainder); ok {
		for _, leg := range legs {
			tx.Reserve(leg.instrument, leg.amount)
		}
		tx.Commit()
		order.MarkPaid()
		return true
	}

	tx.Rollback()
	return false
}

// payFullSingleCard scans the promotion list for the first card whose
// discounted amount fits its remaining limit, then falls back to the first
// card covering the full undiscounted value.
func (e *Engine) payFullSingleCard(order *plan.Order) bool {
	for _, id := range order.Promotions {
		if id == e.pointsID {
			continue
		}
		card, ok := e.ledger.Get(id)
		if !ok || card.DiscountPercent <= 0 {
			continue
		}
		discounted := money.ApplyDiscount(order.Value, card.DiscountPercent)
		if card.Remaining().GreaterThanOrEqual(discounted) {
			tx := e.ledger.Begin()
			tx.Reserve(card, discounted)
			tx.Commit()
			order.MarkPaid()
			return true
		}
	}

	card := e.firstCardCovering(order.Value)
	if card == nil {
		return false
	}
	tx := e.ledger.Begin()
	tx.Reserve(card, order.Value)
	tx.Commit()
	order.MarkPaid()
	return true
}

// payMultiCard distributes the full order value across two or more cards
// with no discount. A one-card cover belongs to payFullSingleCard and is
// rejected here.
func (e *Engine) payMultiCard(order *plan.Order) bool {
	legs, ok := e.planCardSplit(order.Value)
	if !ok || len(legs) < 2 {
		return false
	}
	tx := e.ledger.Begin()
	for _, leg := range legs {
		tx.Reserve(leg.instrument, leg.amount)
	}
	tx.Commit()
	order.MarkPaid()
	return true
}

// payUniversalFallback distributes the order value across every instrument
// with remaining capacity, points first, then cards descending by remaining
// limit, with no discounts. Only an exact cover is accepted.
func (e *Engine) payUniversalFallback(order *plan.Order) bool {
	var sources []*plan.Instrument
	if e.points != nil && e.points.Remaining().IsPositive() {
		sources = append(sources, e.points)
	}
	sources = append(sources, e.cardsByRemainingDesc()...)

	left := order.Value
	var legs []splitLeg
	for _, in := range sources {
		if !left.IsPositive() {
			break
		}
		pay := money.Min(in.Remaining(), left)
		if !pay.IsPositive() {
			continue
		}
		if in.ID != e.pointsID && pay.LessThan(minCardContribution) {
			continue
		}
		legs = append(legs, splitLeg{instrument: in, amount: pay})
		left = left.Sub(pay)
	}
	if left.IsPositive() {
		return false
	}

	tx := e.ledger.Begin()
	for _, leg := range legs {
		tx.Reserve(leg.instrument, leg.amount)
	}
	tx.Commit()
	order.MarkPaid()
	return true
}
