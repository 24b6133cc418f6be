package plan

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Result maps instrument ids to the total amount spent through them,
// covering every instrument in the input including zero spenders. It is an
// independent snapshot, safe to keep after the engine's state is discarded.
type Result struct {
	ids   []string
	spent map[string]decimal.Decimal
}

// Amount returns the total spent through the instrument.
func (r Result) Amount(id string) (decimal.Decimal, bool) {
	v, ok := r.spent[id]
	return v, ok
}

// IDs returns the instrument ids in ledger input order.
func (r Result) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of instruments covered by the snapshot.
func (r Result) Len() int { return len(r.ids) }

// Total sums the spend across all instruments.
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range r.ids {
		total = total.Add(r.spent[id])
	}
	return total
}

// Render writes one line per instrument as "<id> <amount>" with the amount
// formatted to exactly two fractional digits.
func (r Result) Render(w io.Writer) error {
	for _, id := range r.ids {
		if _, err := fmt.Fprintf(w, "%s %s\n", id, r.spent[id].StringFixed(2)); err != nil {
			return fmt.Errorf("render result: %w", err)
		}
	}
	return nil
}
