package domain

import (
	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

// CurrencyPlaces is the precision money is shown with. Stored values keep full precision.
const CurrencyPlaces = 2

// Ledger is the valuation state of an item
type Ledger struct {
	CurrentStock decimal.Decimal
	MinimumStock decimal.Decimal
	AverageCost  decimal.Decimal
	CostPerUnit  decimal.Decimal
	TotalValue   decimal.Decimal
	Status       Status
}

// Movement is one requested stock change
type Movement struct {
	Type     TransactionType
	Quantity decimal.Decimal
	UnitCost *decimal.Decimal
}

// Outcome is the result of applying a movement to a ledger
type Outcome struct {
	Before      Ledger
	After       Ledger
	BeforeStock decimal.Decimal
	AfterStock  decimal.Decimal
	TotalCost   *decimal.Decimal
}

// StatusChanged reports whether the movement moved the item to another status
func (o Outcome) StatusChanged() bool {
	return o.Before.Status != o.After.Status
}

// ComputeStatus classifies stock against its threshold. Anything at or
// below zero is critical, including negative stock from overselling.
func ComputeStatus(current, minimum decimal.Decimal) Status {
	switch {
	case !current.IsPositive():
		return StatusCritical
	case current.LessThanOrEqual(minimum):
		return StatusLow
	default:
		return StatusNormal
	}
}

// ComputeTotalValue returns current × average at full precision
func ComputeTotalValue(current, averageCost decimal.Decimal) decimal.Decimal {
	return current.Mul(averageCost)
}

// ComputeWeightedAverage blends the existing stock value with a purchase.
// With no positive stock before the purchase the incoming unit cost wins.
func ComputeWeightedAverage(beforeStock, oldAverage, quantity, unitCost decimal.Decimal) decimal.Decimal {
	if !beforeStock.IsPositive() {
		return unitCost
	}

	total := beforeStock.Add(quantity)
	if !total.IsPositive() {
		return unitCost
	}

	return beforeStock.Mul(oldAverage).Add(quantity.Mul(unitCost)).Div(total)
}

// SignedDelta returns the stock change a movement causes
func SignedDelta(t TransactionType, quantity decimal.Decimal) decimal.Decimal {
	if t.Inbound() {
		return quantity
	}
	return quantity.Neg()
}

// RoundCurrency rounds a money value for display
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Validate checks a movement before anything is written
func (m Movement) Validate() error {
	details := map[string]string{}

	if !m.Type.Valid() {
		details["transaction_type"] = "must be one of: purchase, sale, adjustment_in, adjustment_out"
	}
	if !m.Quantity.IsPositive() {
		details["quantity"] = "must be greater than 0"
	}
	if m.UnitCost == nil && m.Type == TransactionPurchase {
		details["cost_per_unit"] = "is required for purchases"
	}
	if m.UnitCost != nil && m.UnitCost.IsNegative() {
		details["cost_per_unit"] = "must not be negative"
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// Apply computes the ledger that results from m. The input ledger is not modified.
func Apply(l Ledger, m Movement) (Outcome, error) {
	if err := m.Validate(); err != nil {
		return Outcome{}, err
	}

	before := l
	before.Status = ComputeStatus(l.CurrentStock, l.MinimumStock)

	after := l
	after.CurrentStock = l.CurrentStock.Add(SignedDelta(m.Type, m.Quantity))

	if m.Type == TransactionPurchase {
		after.AverageCost = ComputeWeightedAverage(l.CurrentStock, l.AverageCost, m.Quantity, *m.UnitCost)
	}

	var totalCost *decimal.Decimal
	if m.UnitCost != nil {
		after.CostPerUnit = *m.UnitCost
		tc := m.UnitCost.Mul(m.Quantity)
		totalCost = &tc
	}

	after.TotalValue = ComputeTotalValue(after.CurrentStock, after.AverageCost)
	after.Status = ComputeStatus(after.CurrentStock, after.MinimumStock)

	return Outcome{
		Before:      before,
		After:       after,
		BeforeStock: l.CurrentStock,
		AfterStock:  after.CurrentStock,
		TotalCost:   totalCost,
	}, nil
}

// Recompute refreshes the derived fields of a ledger, e.g. after a threshold edit
func Recompute(l Ledger) Ledger {
	l.TotalValue = ComputeTotalValue(l.CurrentStock, l.AverageCost)
	l.Status = ComputeStatus(l.CurrentStock, l.MinimumStock)
	return l
}

// AdjustmentTo returns the adjustment that moves current to target.
// ok is false when they are equal and nothing must be recorded.
func AdjustmentTo(current, target decimal.Decimal) (Movement, bool) {
	diff := target.Sub(current)
	switch {
	case diff.IsZero():
		return Movement{}, false
	case diff.IsPositive():
		return Movement{Type: TransactionAdjustmentIn, Quantity: diff}, true
	default:
		return Movement{Type: TransactionAdjustmentOut, Quantity: diff.Abs()}, true
	}
}
