// Package engine implements the three-phase greedy payment allocator.
//
// Phase 1 maximizes loyalty points usage sequentially, phase 2 ranks
// discounted card candidates enumerated in parallel, and phase 3 resolves
// whatever is left through fallback strategies. Ledger mutation in the
// parallel phases is serialized behind a single engine-owned lock.
package engine

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/promopay/promopay/errs"
	"github.com/promopay/promopay/internal/money"
	"github.com/promopay/promopay/internal/observability"
	"github.com/promopay/promopay/internal/plan"
)

const (
	defaultPointsID     = "POINTS"
	defaultPhaseTimeout = 10 * time.Second

	// partialPointsDiscountPercent is the flat discount granted when points
	// cover at least minPointsShare of an order's value.
	partialPointsDiscountPercent = 10
)

var (
	// minPointsShare of the original order value must be paid in points to
	// qualify for the partial-points discount.
	minPointsShare = decimal.RequireFromString("0.10")
	// minCardContribution is the smallest amount a card may contribute to a
	// split payment plan.
	minCardContribution = decimal.RequireFromString("0.01")
)

// Option configures the engine.
type Option func(*Engine)

// WithParallelism sizes the worker pool used by the parallel phases.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithPhaseTimeout sets the deadline each parallel phase is joined against.
func WithPhaseTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.phaseTimeout = d
		}
	}
}

// WithPointsID overrides the reserved id of the loyalty points instrument.
func WithPointsID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.pointsID = id
		}
	}
}

// Engine allocates a batch of orders across the instrument ledger. It owns
// the mutable state of both for the duration of a run; a single mutex
// serializes every ledger mutation issued by the parallel phases.
type Engine struct {
	orders   []*plan.Order
	ledger   *plan.Ledger
	points   *plan.Instrument // nil when the input has no points instrument
	pointsID string

	parallelism  int
	phaseTimeout time.Duration
	runID        string

	mu  sync.Mutex
	log observability.Logger
}

// New constructs an engine over the given orders and ledger.
func New(orders []*plan.Order, ledger *plan.Ledger, opts ...Option) *Engine {
	e := &Engine{
		orders:       orders,
		ledger:       ledger,
		points:       nil,
		pointsID:     defaultPointsID,
		parallelism:  runtime.GOMAXPROCS(0),
		phaseTimeout: defaultPhaseTimeout,
		runID:        uuid.NewString(),
		log:          observability.Log(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if points, ok := ledger.Get(e.pointsID); ok {
		e.points = points
	}
	e.logInitialState()
	return e
}

func (e *Engine) logInitialState() {
	e.log.Info("engine initialised",
		observability.F("run_id", e.runID),
		observability.F("orders", len(e.orders)),
		observability.F("instruments", e.ledger.Len()),
		observability.F("workers", e.parallelism))

	if e.points == nil {
		e.log.Warn("points instrument not found; points promotions unavailable",
			observability.F("points_id", e.pointsID))
	}
	cards := 0
	for _, in := range e.ledger.Instruments() {
		if in.ID != e.pointsID {
			cards++
		}
		if in.Limit().IsZero() {
			e.log.Warn("instrument has zero limit", observability.F("instrument", in.ID))
		}
	}
	if cards == 0 && e.points == nil {
		e.log.Error("no payment instruments available; allocation will fail")
	}
}

// Optimize runs the three allocation phases and snapshots the ledger into a
// Result. Any order left unpaid makes the whole run fail.
func (e *Engine) Optimize(ctx context.Context) (plan.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	pointsPaid := e.allocatePointsFirst()
	e.log.Info("phase 1 complete", observability.F("run_id", e.runID),
		observability.F("orders_paid", pointsPaid))

	cardPaid := e.allocateDiscountedCards(ctx)
	e.log.Info("phase 2 complete", observability.F("run_id", e.runID),
		observability.F("orders_paid", cardPaid))

	fallbackPaid, err := e.allocateRemaining(ctx)
	if err != nil {
		return plan.Result{}, err
	}
	e.log.Info("phase 3 complete", observability.F("run_id", e.runID),
		observability.F("orders_paid", fallbackPaid))

	if unpaid := e.unpaidIDs(); len(unpaid) > 0 {
		e.log.Error("orders left unpaid", observability.F("run_id", e.runID),
			observability.F("orders", unpaid))
		return plan.Result{}, errs.New("engine/finalize", errs.CodeInfeasible,
			errs.WithMessage("unable to allocate payments"), errs.WithOrderIDs(unpaid...))
	}

	result := e.ledger.Snapshot()
	e.logSummary(result, time.Since(start))
	return result, nil
}

func (e *Engine) logSummary(result plan.Result, elapsed time.Duration) {
	totalValue := decimal.Zero
	for _, o := range e.orders {
		totalValue = totalValue.Add(o.Value)
	}
	totalSpent := result.Total()
	e.log.Info("allocation complete",
		observability.F("run_id", e.runID),
		observability.F("orders", len(e.orders)),
		observability.F("total_value", totalValue.StringFixed(2)),
		observability.F("total_spent", totalSpent.StringFixed(2)),
		observability.F("total_savings", totalValue.Sub(totalSpent).StringFixed(2)),
		observability.F("elapsed", elapsed.String()))
}

func (e *Engine) unpaidOrders() []*plan.Order {
	var out []*plan.Order
	for _, o := range e.orders {
		if !o.Paid() {
			out = append(out, o)
		}
	}
	return out
}

func (e *Engine) unpaidIDs() []string {
	var out []string
	for _, o := range e.orders {
		if !o.Paid() {
			out = append(out, o.ID)
		}
	}
	return out
}

// minPointsContribution is the points amount required to unlock the
// partial-points discount: 10% of the original order value.
func (e *Engine) minPointsContribution(value decimal.Decimal) decimal.Decimal {
	return money.Normalize(value.Mul(minPointsShare))
}

// firstCardCovering returns the first non-points instrument in input order
// whose remaining limit covers amount, or nil. Non-positive amounts need no
// card.
func (e *Engine) firstCardCovering(amount decimal.Decimal) *plan.Instrument {
	if !amount.IsPositive() {
		return nil
	}
	for _, in := range e.ledger.Instruments() {
		if in.ID == e.pointsID {
			continue
		}
		if in.Remaining().GreaterThanOrEqual(amount) {
			return in
		}
	}
	return nil
}

// cardsByRemainingDesc returns all non-points instruments with positive
// remaining limit, sorted descending by remaining limit. The sort is stable
// on ledger input order.
func (e *Engine) cardsByRemainingDesc() []*plan.Instrument {
	var cards []*plan.Instrument
	for _, in := range e.ledger.Instruments() {
		if in.ID == e.pointsID || !in.Remaining().IsPositive() {
			continue
		}
		cards = append(cards, in)
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Remaining().GreaterThan(cards[j].Remaining())
	})
	return cards
}

type splitLeg struct {
	instrument *plan.Instrument
	amount     decimal.Decimal
}

// planCardSplit greedily distributes amount across cards sorted descending
// by remaining limit, each leg at least minCardContribution. It returns the
// planned legs and whether the amount is fully covered; nothing is reserved.
func (e *Engine) planCardSplit(amount decimal.Decimal) ([]splitLeg, bool) {
	left := amount
	var legs []splitLeg
	for _, card := range e.cardsByRemainingDesc() {
		if !left.IsPositive() {
			break
		}
		pay := money.Min(card.Remaining(), left)
		if pay.LessThan(minCardContribution) {
			continue
		}
		legs = append(legs, splitLeg{instrument: card, amount: pay})
		left = left.Sub(pay)
	}
	if left.IsPositive() {
		return nil, false
	}
	return legs, true
}

// waitWithDeadline joins the pool against the context deadline. It reports
// false when the deadline fires first; abandoned tasks observe the cancelled
// context and bail before mutating the ledger.
func waitWithDeadline(ctx context.Context, p *pool.Pool) bool {
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
