package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promopay/promopay/errs"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOrdersParsesStringAndNumericValues(t *testing.T) {
	path := writeFile(t, "orders.json", `[
		{"id": "ORDER1", "value": "100.00", "promotions": ["CARD_A", "CARD_B"]},
		{"id": "ORDER2", "value": 49.995}
	]`)

	orders, err := LoadOrders(path)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	require.Equal(t, "ORDER1", orders[0].ID)
	require.Equal(t, "100.00", orders[0].Value.StringFixed(2))
	require.Equal(t, []string{"CARD_A", "CARD_B"}, orders[0].Promotions)

	// Values normalize half-up at construction; absent promotions stay empty.
	require.Equal(t, "50.00", orders[1].Value.StringFixed(2))
	require.Empty(t, orders[1].Promotions)
}

func TestLoadOrdersRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "orders.json", `[
		{"id": "ORDER1", "value": "10.00"},
		{"id": "ORDER1", "value": "20.00"}
	]`)

	_, err := LoadOrders(path)
	require.True(t, errs.IsCode(err, errs.CodeDuplicateID), "got %v", err)
}

func TestLoadOrdersRejectsNegativeValue(t *testing.T) {
	path := writeFile(t, "orders.json", `[{"id": "ORDER1", "value": "-1.00"}]`)

	_, err := LoadOrders(path)
	require.True(t, errs.IsCode(err, errs.CodeValidation), "got %v", err)
}

func TestLoadOrdersRejectsMalformedJSON(t *testing.T) {
	path := writeFile(t, "orders.json", `[{"id": "ORDER1",`)

	_, err := LoadOrders(path)
	require.True(t, errs.IsCode(err, errs.CodeValidation), "got %v", err)
}

func TestLoadOrdersMissingFile(t *testing.T) {
	_, err := LoadOrders(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadInstrumentsPreservesOrderAndParsesQuotedDiscount(t *testing.T) {
	path := writeFile(t, "instruments.json", `[
		{"id": "POINTS", "discount": "15", "limit": "100.00"},
		{"id": "CARD_A", "discount": 10, "limit": 200}
	]`)

	ledger, err := LoadInstruments(path)
	require.NoError(t, err)
	require.Equal(t, 2, ledger.Len())

	instruments := ledger.Instruments()
	require.Equal(t, "POINTS", instruments[0].ID)
	require.Equal(t, 15, instruments[0].DiscountPercent)
	require.Equal(t, "100.00", instruments[0].Limit().StringFixed(2))
	require.Equal(t, "CARD_A", instruments[1].ID)
	require.Equal(t, 10, instruments[1].DiscountPercent)
	require.Equal(t, "200.00", instruments[1].Limit().StringFixed(2))
}

func TestLoadInstrumentsRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "instruments.json", `[
		{"id": "CARD_A", "discount": 10, "limit": "200.00"},
		{"id": "CARD_A", "discount": 5, "limit": "50.00"}
	]`)

	_, err := LoadInstruments(path)
	require.True(t, errs.IsCode(err, errs.CodeDuplicateID), "got %v", err)
}

func TestLoadInstrumentsRejectsOutOfRangeDiscount(t *testing.T) {
	path := writeFile(t, "instruments.json", `[{"id": "CARD_A", "discount": 101, "limit": "200.00"}]`)

	_, err := LoadInstruments(path)
	require.True(t, errs.IsCode(err, errs.CodeValidation), "got %v", err)
}

func TestLoadInstrumentsRejectsNegativeLimit(t *testing.T) {
	path := writeFile(t, "instruments.json", `[{"id": "CARD_A", "discount": 10, "limit": "-5.00"}]`)

	_, err := LoadInstruments(path)
	require.True(t, errs.IsCode(err, errs.CodeValidation), "got %v", err)
}
