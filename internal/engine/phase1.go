package engine

import (
	"sort"

	"github.com/promopay/promopay/internal/money"
	"github.com/promopay/promopay/internal/observability"
	"github.com/promopay/promopay/internal/plan"
)

// allocatePointsFirst runs phase 1: sequentially spend the points limit on
// the orders where points beat every eligible card discount, smallest order
// first so the limit satisfies as many orders as possible.
func (e *Engine) allocatePointsFirst() int {
	if e.points == nil || !e.points.Remaining().IsPositive() {
		e.log.Debug("points instrument unavailable or depleted; skipping phase 1")
		return 0
	}

	deferred := e.ordersPreferringCards()

	var eligible []*plan.Order
	for _, o := range e.orders {
		if o.Paid() || deferred[o.ID] {
			continue
		}
		eligible = append(eligible, o)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Value.LessThan(eligible[j].Value)
	})

	applied := 0
	for _, order := range eligible {
		if order.Paid() {
			continue
		}
		switch {
		case e.points.Remaining().GreaterThanOrEqual(order.Value):
			if e.payFullWithPoints(order) {
				applied++
			}
		case e.points.Remaining().IsPositive():
			if e.payPartialWithPoints(order) {
				applied++
			}
		}
		if !e.points.Remaining().IsPositive() {
			e.log.Debug("points limit depleted; stopping phase 1")
			break
		}
	}

	e.log.Debug("points allocation finished",
		observability.F("orders_paid", applied),
		observability.F("points_remaining", e.points.Remaining().StringFixed(2)))
	return applied
}

// ordersPreferringCards identifies unpaid orders where the best eligible card
// discount beats what points can offer; those are deferred to phase 2. A card
// only counts when its remaining limit covers the order's full value.
func (e *Engine) ordersPreferringCards() map[string]bool {
	deferred := make(map[string]bool)
	for _, order := range e.orders {
		if order.Paid() || len(order.Promotions) == 0 {
			continue
		}

		bestCard := 0
		for _, id := range order.Promotions {
			if id == e.pointsID {
				continue
			}
			card, ok := e.ledger.Get(id)
			if !ok {
				continue
			}
			if card.DiscountPercent > bestCard && card.Remaining().GreaterThanOrEqual(order.Value) {
				bestCard = card.DiscountPercent
			}
		}

		pointsPreferable := false
		if e.points.Remaining().GreaterThanOrEqual(order.Value) {
			pointsPreferable = e.points.DiscountPercent >= bestCard
		} else if e.points.Remaining().GreaterThanOrEqual(e.minPointsContribution(order.Value)) {
			pointsPreferable = partialPointsDiscountPercent >= bestCard
		}

		if bestCard > 0 && !pointsPreferable {
			deferred[order.ID] = true
		}
	}
	return deferred
}

// payFullWithPoints pays the order entirely from points, applying the points
// instrument's own discount when it has one.
func (e *Engine) payFullWithPoints(order *plan.Order) bool {
	if e.points.Remaining().LessThan(order.Value) {
		return false
	}
	amount := order.Value
	if e.points.DiscountPercent > 0 {
		amount = money.ApplyDiscount(order.Value, e.points.DiscountPercent)
	}

	tx := e.ledger.Begin()
	tx.Reserve(e.points, amount)
	tx.Commit()
	order.MarkPaid()

	e.log.Debug("order paid fully with points",
		observability.F("order", order.ID),
		observability.F("amount", amount.StringFixed(2)))
	return true
}

// payPartialWithPoints attempts the 10%-rule plan: a flat 10% discount on the
// order value, at least 10% of the original value paid in points, and the
// residual covered by one card or a descending multi-card split. The points
// reservation rolls back when the residual cannot be covered.
func (e *Engine) payPartialWithPoints(order *plan.Order) bool {
	minPoints := e.minPointsContribution(order.Value)
	if e.points.Remaining().LessThan(minPoints) {
		return false
	}

	discountedTotal := money.ApplyDiscount(order.Value, partialPointsDiscountPercent)
	pointsAmount := money.Min(discountedTotal, e.points.Remaining())
	if pointsAmount.LessThan(minPoints) {
		return false
	}
	cardAmount := discountedTotal.Sub(pointsAmount)

	tx := e.ledger.Begin()
	tx.Reserve(e.points, pointsAmount)

	if !cardAmount.IsPositive() {
		tx.Commit()
		order.MarkPaid()
		e.log.Debug("order paid with discounted points only",
			observability.F("order", order.ID),
			observability.F("points", pointsAmount.StringFixed(2)))
		return true
	}

	if card := e.firstCardCovering(cardAmount); card != nil {
		tx.Reserve(card, cardAmount)
		tx.Commit()
		order.MarkPaid()
		e.log.Debug("order paid with points and one card",
			observability.F("order", order.ID),
			observability.F("points", pointsAmount.StringFixed(2)),
			observability.F("card", card.ID),
			observability.F("card_amount", cardAmount.StringFixed(2)))
		return true
	}

	if legs, ok := e.planCardSplit(cardAmount); ok {
		for _, leg := range legs {
			tx.Reserve(leg.instrument, leg.amount)
		}
		tx.Commit()
		order.MarkPaid()
		e.log.Debug("order paid with points and multi-card split",
			observability.F("order", order.ID),
			observability.F("points", pointsAmount.StringFixed(2)),
			observability.F("cards", len(legs)))
		return true
	}

	tx.Rollback()
	e.log.Debug("points reservation reverted; residual not coverable",
		observability.F("order", order.ID))
	return false
}
