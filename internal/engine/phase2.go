package engine

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/promopay/promopay/internal/money"
	"github.com/promopay/promopay/internal/observability"
	"github.com/promopay/promopay/internal/plan"
)

// allocateDiscountedCards runs phase 2: enumerate discounted card candidates
// for every unpaid order in parallel, rank them by savings, and apply them
// serially under the mutation lock. A deadline overrun here is non-fatal and
// degrades to an empty candidate set; later phases can still resolve orders.
func (e *Engine) allocateDiscountedCards(ctx context.Context) int {
	unpaid := e.unpaidOrders()
	if len(unpaid) == 0 {
		e.log.Debug("no unpaid orders remain for card allocation")
		return 0
	}

	phaseCtx, cancel := context.WithTimeout(ctx, e.phaseTimeout)
	defer cancel()

	// Collected per order index so ties in the later sort resolve by input
	// order regardless of goroutine scheduling.
	perOrder := make([][]plan.Candidate, len(unpaid))

	workers := pool.New().WithMaxGoroutines(e.parallelism)
	for i, o := range unpaid {
		idx, order := i, o
		workers.Go(func() {
			if phaseCtx.Err() != nil {
				return
			}
			perOrder[idx] = e.enumerateCandidates(order)
		})
	}

	if !waitWithDeadline(phaseCtx, workers) {
		e.log.Warn("candidate enumeration exceeded deadline; continuing without candidates",
			observability.F("run_id", e.runID),
			observability.F("deadline", e.phaseTimeout.String()))
		return 0
	}

	var candidates []plan.Candidate
	for _, found := range perOrder {
		candidates = append(candidates, found...)
	}
	if len(candidates) == 0 {
		e.log.Debug("no discounted card candidates found")
		return 0
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Discount.GreaterThan(candidates[j].Discount)
	})

	return e.applyCandidates(candidates)
}

// enumerateCandidates collects one candidate per promotion card that could
// pay the order's full value at a strictly positive discount. Reads run
// without the mutation lock; application re-validates everything.
func (e *Engine) enumerateCandidates(order *plan.Order) []plan.Candidate {
	if order.Paid() || len(order.Promotions) == 0 {
		return nil
	}

	var candidates []plan.Candidate
	for _, id := range order.Promotions {
		if id == e.pointsID {
			continue
		}
		card, ok := e.ledger.Get(id)
		if !ok {
			continue
		}
		if card.Remaining().LessThan(order.Value) {
			continue
		}
		discount := money.DiscountAmount(order.Value, card.DiscountPercent)
		if !discount.IsPositive() {
			continue
		}
		candidates = append(candidates, plan.Candidate{
			Order:      order,
			Instrument: card,
			Amount:     money.ApplyDiscount(order.Value, card.DiscountPercent),
			Discount:   discount,
		})
	}
	return candidates
}

// applyCandidates walks the globally ranked candidate list in a single
// serialized pass. Each candidate is re-validated because earlier
// applications may have consumed capacity it assumed available.
func (e *Engine) applyCandidates(candidates []plan.Candidate) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	applied := 0
	for _, candidate := range candidates {
		order := candidate.Order
		card := candidate.Instrument

		if order.Paid() {
			continue
		}
		if card.Remaining().LessThan(candidate.Amount) {
			continue
		}
		if !order.HasPromotion(card.ID) || card.Remaining().LessThan(order.Value) {
			continue
		}

		tx := e.ledger.Begin()
		tx.Reserve(card, candidate.Amount)
		tx.Commit()
		order.MarkPaid()
		applied++

		e.log.Debug("order paid with discounted card",
			observability.F("order", order.ID),
			observability.F("card", card.ID),
			observability.F("amount", candidate.Amount.StringFixed(2)),
			observability.F("savings", candidate.Discount.StringFixed(2)))
	}
	return applied
}
