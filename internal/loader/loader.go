// Package loader reads order and instrument records from JSON files and
// validates them before the engine runs.
package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/promopay/promopay/errs"
	"github.com/promopay/promopay/internal/observability"
	"github.com/promopay/promopay/internal/plan"
)

type orderRecord struct {
	ID         string          `json:"id"`
	Value      decimal.Decimal `json:"value"`
	Promotions []string        `json:"promotions"`
}

type instrumentRecord struct {
	ID       string          `json:"id"`
	Discount flexInt         `json:"discount"`
	Limit    decimal.Decimal `json:"limit"`
}

// flexInt accepts both numeric and quoted-numeric JSON representations.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("invalid integer %q", text)
	}
	*f = flexInt(n)
	return nil
}

// LoadOrders reads and validates the order file, preserving input order and
// rejecting duplicate ids.
func LoadOrders(path string) ([]*plan.Order, error) {
	log := observability.Log()
	log.Info("loading orders", observability.F("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}
	var records []orderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errs.New("loader/orders", errs.CodeValidation,
			errs.WithMessage("malformed orders file"), errs.WithCause(err))
	}

	orders := make([]*plan.Order, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		order, err := plan.NewOrder(rec.ID, rec.Value, rec.Promotions)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[order.ID]; dup {
			return nil, errs.New("loader/orders", errs.CodeDuplicateID,
				errs.WithMessage("duplicate order id"), errs.WithOrderIDs(order.ID))
		}
		seen[order.ID] = struct{}{}
		orders = append(orders, order)
	}

	log.Info("orders loaded", observability.F("count", len(orders)))
	return orders, nil
}

// LoadInstruments reads and validates the instrument file into a ledger,
// preserving input order. Duplicate ids are fatal.
func LoadInstruments(path string) (*plan.Ledger, error) {
	log := observability.Log()
	log.Info("loading instruments", observability.F("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments file: %w", err)
	}
	var records []instrumentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errs.New("loader/instruments", errs.CodeValidation,
			errs.WithMessage("malformed instruments file"), errs.WithCause(err))
	}

	instruments := make([]*plan.Instrument, 0, len(records))
	for _, rec := range records {
		instrument, err := plan.NewInstrument(rec.ID, int(rec.Discount), rec.Limit)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument)
	}

	ledger, err := plan.NewLedger(instruments)
	if err != nil {
		return nil, err
	}

	log.Info("instruments loaded", observability.F("count", ledger.Len()))
	return ledger, nil
}
