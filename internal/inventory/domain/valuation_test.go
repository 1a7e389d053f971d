package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		current string
		minimum string
		want    Status
	}{
		{"10", "5", StatusNormal},
		{"5.01", "5", StatusNormal},
		{"5", "5", StatusLow},
		{"0.5", "5", StatusLow},
		{"0", "5", StatusCritical},
		{"-3", "5", StatusCritical},
		{"0", "0", StatusCritical},
		{"1", "0", StatusNormal},
	}

	for _, tt := range tests {
		t.Run(tt.current+"/"+tt.minimum, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStatus(d(tt.current), d(tt.minimum)))
		})
	}
}

func TestComputeWeightedAverage(t *testing.T) {
	tests := []struct {
		name       string
		before     string
		oldAverage string
		quantity   string
		unitCost   string
		want       string
	}{
		{"blends existing stock", "5", "20", "5", "40", "30"},
		{"empty stock takes unit cost", "0", "0", "10", "50", "50"},
		{"negative stock takes unit cost", "-4", "12", "10", "8", "8"},
		{"fractional quantities", "2.5", "4", "7.5", "8", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWeightedAverage(d(tt.before), d(tt.oldAverage), d(tt.quantity), d(tt.unitCost))
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestSignedDelta(t *testing.T) {
	assertDecimal(t, "3", SignedDelta(TransactionPurchase, d("3")))
	assertDecimal(t, "3", SignedDelta(TransactionAdjustmentIn, d("3")))
	assertDecimal(t, "-3", SignedDelta(TransactionSale, d("3")))
	assertDecimal(t, "-3", SignedDelta(TransactionAdjustmentOut, d("3")))
}

func TestApply_PurchaseIntoEmptyItem(t *testing.T) {
	start := Ledger{CurrentStock: d("0"), MinimumStock: d("2"), AverageCost: d("0"), Status: StatusCritical}

	out, err := Apply(start, Movement{Type: TransactionPurchase, Quantity: d("10"), UnitCost: dp("50")})
	require.NoError(t, err)

	assertDecimal(t, "0", out.BeforeStock)
	assertDecimal(t, "10", out.AfterStock)
	assertDecimal(t, "50", out.After.AverageCost)
	assertDecimal(t, "50", out.After.CostPerUnit)
	assertDecimal(t, "500", out.After.TotalValue)
	assertDecimal(t, "500", *out.TotalCost)
	assert.Equal(t, StatusNormal, out.After.Status)
	assert.True(t, out.StatusChanged())
}

func TestApply_PurchaseBlendsAverage(t *testing.T) {
	start := Ledger{CurrentStock: d("5"), MinimumStock: d("1"), AverageCost: d("20"), TotalValue: d("100"), Status: StatusNormal}

	out, err := Apply(start, Movement{Type: TransactionPurchase, Quantity: d("5"), UnitCost: dp("40")})
	require.NoError(t, err)

	assertDecimal(t, "30", out.After.AverageCost)
	assertDecimal(t, "10", out.After.CurrentStock)
	assertDecimal(t, "300", out.After.TotalValue)
}

func TestApply_PurchaseAfterOverselling(t *testing.T) {
	start := Ledger{CurrentStock: d("-2"), MinimumStock: d("1"), AverageCost: d("9"), Status: StatusCritical}

	out, err := Apply(start, Movement{Type: TransactionPurchase, Quantity: d("6"), UnitCost: dp("11")})
	require.NoError(t, err)

	assertDecimal(t, "11", out.After.AverageCost)
	assertDecimal(t, "4", out.After.CurrentStock)
	assertDecimal(t, "44", out.After.TotalValue)
}

func TestApply_NonPurchaseKeepsAverage(t *testing.T) {
	start := Ledger{CurrentStock: d("10"), MinimumStock: d("5"), AverageCost: d("3.25"), CostPerUnit: d("3.5"), Status: StatusNormal}

	for _, tt := range []TransactionType{TransactionSale, TransactionAdjustmentIn, TransactionAdjustmentOut} {
		t.Run(string(tt), func(t *testing.T) {
			out, err := Apply(start, Movement{Type: tt, Quantity: d("2")})
			require.NoError(t, err)
			assertDecimal(t, "3.25", out.After.AverageCost)
			assertDecimal(t, "3.5", out.After.CostPerUnit)
			assert.Nil(t, out.TotalCost)
			assertDecimal(t, out.After.CurrentStock.Mul(d("3.25")).String(), out.After.TotalValue)
		})
	}
}

func TestApply_SaleWithCostRecordsIt(t *testing.T) {
	start := Ledger{CurrentStock: d("10"), MinimumStock: d("5"), AverageCost: d("3"), Status: StatusNormal}

	out, err := Apply(start, Movement{Type: TransactionSale, Quantity: d("2"), UnitCost: dp("7")})
	require.NoError(t, err)
	assertDecimal(t, "3", out.After.AverageCost)
	assertDecimal(t, "7", out.After.CostPerUnit)
	assertDecimal(t, "14", *out.TotalCost)
}

func TestApply_SaleIntoNegative(t *testing.T) {
	start := Ledger{CurrentStock: d("1"), MinimumStock: d("0"), AverageCost: d("4"), Status: StatusNormal}

	out, err := Apply(start, Movement{Type: TransactionSale, Quantity: d("3")})
	require.NoError(t, err)
	assertDecimal(t, "-2", out.AfterStock)
	assertDecimal(t, "-8", out.After.TotalValue)
	assert.Equal(t, StatusCritical, out.After.Status)
}

func TestApply_Rejects(t *testing.T) {
	start := Ledger{CurrentStock: d("10"), MinimumStock: d("5"), AverageCost: d("2"), Status: StatusNormal}

	tests := []struct {
		name  string
		m     Movement
		field string
	}{
		{"zero purchase", Movement{Type: TransactionPurchase, Quantity: d("0"), UnitCost: dp("5")}, "quantity"},
		{"negative sale", Movement{Type: TransactionSale, Quantity: d("-1")}, "quantity"},
		{"purchase without cost", Movement{Type: TransactionPurchase, Quantity: d("1")}, "cost_per_unit"},
		{"negative cost", Movement{Type: TransactionAdjustmentIn, Quantity: d("1"), UnitCost: dp("-1")}, "cost_per_unit"},
		{"unknown type", Movement{Type: "gift", Quantity: d("1")}, "transaction_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(start, tt.m)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, errors.CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

// Every outcome keeps the ledger invariants, whatever sequence of movements produced it.
func TestApply_InvariantsHoldOverSequence(t *testing.T) {
	l := Ledger{CurrentStock: d("0"), MinimumStock: d("4"), AverageCost: d("0"), Status: StatusCritical}
	moves := []Movement{
		{Type: TransactionPurchase, Quantity: d("12"), UnitCost: dp("2.40")},
		{Type: TransactionSale, Quantity: d("5")},
		{Type: TransactionPurchase, Quantity: d("3.3"), UnitCost: dp("2.95")},
		{Type: TransactionAdjustmentOut, Quantity: d("11")},
		{Type: TransactionSale, Quantity: d("1.7")},
		{Type: TransactionAdjustmentIn, Quantity: d("0.4")},
		{Type: TransactionPurchase, Quantity: d("7"), UnitCost: dp("3.10")},
	}

	tolerance := d("0.000001")
	for i, m := range moves {
		out, err := Apply(l, m)
		require.NoError(t, err, "move %d", i)

		assert.True(t, out.AfterStock.Equal(out.BeforeStock.Add(SignedDelta(m.Type, m.Quantity))), "move %d", i)
		diff := out.After.TotalValue.Sub(out.After.CurrentStock.Mul(out.After.AverageCost)).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance), "move %d total value drift %s", i, diff)
		assert.Equal(t, ComputeStatus(out.After.CurrentStock, out.After.MinimumStock), out.After.Status, "move %d", i)
		assert.False(t, out.After.AverageCost.IsNegative(), "move %d", i)

		l = out.After
	}
	assertDecimal(t, "3.10", l.AverageCost)
}

func TestAdjustmentTo(t *testing.T) {
	_, ok := AdjustmentTo(d("10"), d("10.000"))
	assert.False(t, ok)

	m, ok := AdjustmentTo(d("10"), d("3"))
	require.True(t, ok)
	assert.Equal(t, TransactionAdjustmentOut, m.Type)
	assertDecimal(t, "7", m.Quantity)

	m, ok = AdjustmentTo(d("-2"), d("4"))
	require.True(t, ok)
	assert.Equal(t, TransactionAdjustmentIn, m.Type)
	assertDecimal(t, "6", m.Quantity)
}

func TestRecompute(t *testing.T) {
	l := Recompute(Ledger{CurrentStock: d("4"), MinimumStock: d("6"), AverageCost: d("2.5"), Status: StatusNormal})
	assert.Equal(t, StatusLow, l.Status)
	assertDecimal(t, "10", l.TotalValue)
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, "33.33", RoundCurrency(d("100").Div(d("3"))).StringFixed(2))
	assert.Equal(t, "2.68", RoundCurrency(d("2.675")).StringFixed(2))
}
