package plan

import (
	"github.com/shopspring/decimal"

	"github.com/promopay/promopay/errs"
)

// Ledger is the arena of instrument records the engine mutates. It preserves
// instrument input order so "first sufficient card" scans and descending
// remaining-limit sorts stay reproducible across runs. The ledger itself is
// not synchronized; the engine serializes every mutating access.
type Ledger struct {
	byID map[string]*Instrument
	seq  []*Instrument
}

// NewLedger builds a ledger over the given instruments, rejecting duplicates.
func NewLedger(instruments []*Instrument) (*Ledger, error) {
	l := &Ledger{
		byID: make(map[string]*Instrument, len(instruments)),
		seq:  make([]*Instrument, 0, len(instruments)),
	}
	for _, in := range instruments {
		if _, exists := l.byID[in.ID]; exists {
			return nil, errs.New("plan/ledger", errs.CodeDuplicateID,
				errs.WithMessage("duplicate instrument: "+in.ID))
		}
		l.byID[in.ID] = in
		l.seq = append(l.seq, in)
	}
	return l, nil
}

// Get returns the instrument with the given id.
func (l *Ledger) Get(id string) (*Instrument, bool) {
	in, ok := l.byID[id]
	return in, ok
}

// Instruments returns all instruments in input order. The slice is shared;
// callers must not modify it.
func (l *Ledger) Instruments() []*Instrument { return l.seq }

// Len returns the number of instruments in the ledger.
func (l *Ledger) Len() int { return len(l.seq) }

// Snapshot copies every instrument's total spent into an independent Result,
// including instruments with zero spend.
func (l *Ledger) Snapshot() Result {
	r := Result{
		ids:   make([]string, 0, len(l.seq)),
		spent: make(map[string]decimal.Decimal, len(l.seq)),
	}
	for _, in := range l.seq {
		r.ids = append(r.ids, in.ID)
		r.spent[in.ID] = in.Spent().Round(2)
	}
	return r
}

// Begin opens a transaction over the ledger. Postings apply immediately and
// are recorded so the whole transaction can be rolled back; callers must hold
// the engine's mutation lock for the transaction's entire lifetime.
func (l *Ledger) Begin() *Tx {
	return &Tx{undo: nil}
}

type posting struct {
	instrument *Instrument
	amount     decimal.Decimal
}

// Tx batches instrument postings so a multi-leg payment either fully applies
// or fully reverts. It is the only path through which ledger state changes.
type Tx struct {
	undo []posting
}

// Reserve debits the instrument's remaining limit and credits its spend
// accumulator. Negative amounts are ignored by the underlying operations and
// leave no undo entry.
func (t *Tx) Reserve(in *Instrument, amount decimal.Decimal) {
	if in == nil || amount.IsNegative() {
		return
	}
	in.deductLimit(amount)
	in.addSpent(amount)
	t.undo = append(t.undo, posting{instrument: in, amount: amount})
}

// Rollback reverts every posting of the transaction in reverse order.
func (t *Tx) Rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		p := t.undo[i]
		p.instrument.restoreLimit(p.amount)
		p.instrument.subtractSpent(p.amount)
	}
	t.undo = nil
}

// Commit finalizes the transaction, discarding the undo log.
func (t *Tx) Commit() {
	t.undo = nil
}
