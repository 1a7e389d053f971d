package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

func cost(s string) *string { return &s }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.True(t, testutil.Dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msg)
}
