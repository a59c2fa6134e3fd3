package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanbot/internal/model"
	"oceanbot/internal/storage/memory"
)

func TestStoreDefaultsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	ts, err := s.LastFetched(ctx)
	require.NoError(t, err)
	assert.Zero(t, ts)

	state, err := s.FetchState(ctx)
	require.NoError(t, err)
	assert.False(t, state.Fetching)

	infos, err := s.Oceans(ctx)
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestStoreOceansOverwrittenWholesale(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	first := []model.OceanInfo{
		{Ocean: model.Ocean{OceanBase: model.OceanBase{Name: "A", Address: "0x1"}}, APR: 30},
		{Ocean: model.Ocean{OceanBase: model.OceanBase{Name: "B", Address: "0x2"}}, APR: 12.5},
	}
	require.NoError(t, s.SetOceans(ctx, first))

	second := []model.OceanInfo{
		{Ocean: model.Ocean{OceanBase: model.OceanBase{Name: "C", Address: "0x3"}}, TotalStaked: decimal.RequireFromString("1.5")},
	}
	require.NoError(t, s.SetOceans(ctx, second))

	got, err := s.Oceans(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Name)
	assert.True(t, got[0].TotalStaked.Equal(decimal.RequireFromString("1.5")))
}

func TestStoreScalarsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	require.NoError(t, s.SetLastFetched(ctx, 1700000000))
	require.NoError(t, s.SetFetchState(ctx, model.FetchState{Fetching: true, Since: 1700000100}))

	ts, err := s.LastFetched(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)

	state, err := s.FetchState(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.FetchState{Fetching: true, Since: 1700000100}, state)
}

func TestStoreUserCreatedOnFirstRead(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := New(docs)

	user, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.UserProfile{ID: 42}, user)

	_, ok, err := docs.Get(ctx, UserPath(42))
	require.NoError(t, err)
	assert.True(t, ok)

	user.Wallet = "0x000000000000000000000000000000000000dEaD"
	user.State = model.StateAwaitingWalletAddress
	require.NoError(t, s.SaveUser(ctx, user))

	again, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, user, again)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "redis"})
	require.Error(t, err)
}

func TestOpenFileBackend(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Backend: BackendFile, Dir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetLastFetched(ctx, 99))
	ts, err := s.LastFetched(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), ts)
}
