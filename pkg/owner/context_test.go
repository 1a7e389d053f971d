package owner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerID(t *testing.T) {
	_, err := OwnerID(context.Background())
	assert.ErrorIs(t, err, ErrNoOwnerInContext)

	ctx := WithOwnerID(context.Background(), "6f1c2b1e-7a55-4f3e-9d2a-0c4b1e2f3a4b")
	id, err := OwnerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b1e-7a55-4f3e-9d2a-0c4b1e2f3a4b", id)
	assert.Equal(t, id, MustOwnerID(ctx))
}

func TestMustOwnerID_Panics(t *testing.T) {
	assert.Panics(t, func() { MustOwnerID(context.Background()) })
}

func TestParse(t *testing.T) {
	id, err := Parse("6F1C2B1E-7A55-4F3E-9D2A-0C4B1E2F3A4B")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b1e-7a55-4f3e-9d2a-0c4b1e2f3a4b", id)

	_, err = Parse("kitchen-1")
	assert.ErrorIs(t, err, ErrInvalidOwnerID)
}
