package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWalksWrappedChain(t *testing.T) {
	inner := New(CodeUnavailable, "provider timeout")
	outer := Wrap(CodeLedgerUnavailable, "call balanceOf", inner)
	wrapped := fmt.Errorf("refresh: %w", outer)

	assert.True(t, Is(wrapped, CodeLedgerUnavailable))
	assert.True(t, Is(wrapped, CodeUnavailable))
	assert.False(t, Is(wrapped, CodeListingUnavailable))
	assert.False(t, Is(fmt.Errorf("plain"), CodeInternal))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(CodeListingUnavailable, "listing payload invalid", fmt.Errorf("missing data"))
	require.EqualError(t, err, "listing payload invalid: missing data")

	typed, ok := As(fmt.Errorf("x: %w", err))
	require.True(t, ok)
	assert.Equal(t, "listing_unavailable", typed.Code.String())
}
