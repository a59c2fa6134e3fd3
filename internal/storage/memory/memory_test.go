package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	doc := []byte(`{"a":1}`)
	require.NoError(t, s.Put(ctx, "k", doc))
	doc[2] = 'b'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))
}
