package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemView_MarshalJSONAddsDisplayMoney(t *testing.T) {
	unit := "kg"
	v := &ItemView{
		InventoryItem: InventoryItem{
			ID:           "item-1",
			SKU:          "FLOUR",
			CurrentStock: d("3"),
			AverageCost:  d("0.333333"),
			CostPerUnit:  d("0.5"),
			TotalValue:   d("0.999999"),
			Status:       StatusNormal,
		},
		UnitName: &unit,
	}

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "FLOUR", got["sku"])
	assert.Equal(t, "kg", got["unit_name"])
	assert.Equal(t, "0.333333", got["average_cost"], "stored precision is kept")
	assert.Equal(t, "0.33", got["average_cost_display"])
	assert.Equal(t, "0.50", got["cost_per_unit_display"])
	assert.Equal(t, "1.00", got["total_value_display"])

	var back ItemView
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "item-1", back.ID)
	assertDecimal(t, "0.999999", back.TotalValue)
}

func TestDashboardStats_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(DashboardStats{TotalItems: 2, TotalValue: d("10.005")})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_items": 2,
		"total_value": "10.005",
		"total_value_display": "10.01",
		"low_stock_items": 0,
		"critical_items": 0,
		"negative_stock_items": 0,
		"unread_notifications": 0
	}`, string(raw))
}
