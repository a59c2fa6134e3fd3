package netcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanbot/internal/httpx"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func TestFetchServesFreshEntryWithoutCalling(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := New(5 * time.Minute)
	cache.SetClock(clock.Now)

	calls := 0
	fn := func(context.Context) ([]byte, error) {
		calls++
		return []byte{byte(calls)}, nil
	}

	body, err := cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, body)

	clock.now = clock.now.Add(4 * time.Minute)
	body, err = cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, body)
	assert.Equal(t, 1, calls)
}

func TestFetchRefetchesAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := New(5 * time.Minute)
	cache.SetClock(clock.Now)

	calls := 0
	fn := func(context.Context) ([]byte, error) {
		calls++
		return []byte{byte(calls)}, nil
	}

	_, err := cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)

	clock.now = clock.now.Add(5 * time.Minute)
	body, err := cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, body)
}

func TestFetchForceBypassesFreshEntry(t *testing.T) {
	cache := New(time.Hour)
	calls := 0
	fn := func(context.Context) ([]byte, error) {
		calls++
		return []byte{byte(calls)}, nil
	}

	_, err := cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)
	body, err := cache.Fetch(context.Background(), "k", true, fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, body)

	body, err = cache.Fetch(context.Background(), "k", false, fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, body, "forced result replaces the entry")
}

func TestFetchErrorKeepsPreviousEntry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := New(time.Minute)
	cache.SetClock(clock.Now)

	_, err := cache.Fetch(context.Background(), "k", false, func(context.Context) ([]byte, error) {
		return []byte("old"), nil
	})
	require.NoError(t, err)

	_, err = cache.Fetch(context.Background(), "k", true, func(context.Context) ([]byte, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	body, err := cache.Fetch(context.Background(), "k", false, func(context.Context) ([]byte, error) {
		t.Fatal("unexpected call")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), body)
	assert.Equal(t, 1, cache.Len())
}

func TestClientGetJSONCachesByURL(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		_, _ = w.Write([]byte(`{"cake":"2.5"}`))
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), New(time.Minute))
	for i := 0; i < 3; i++ {
		var out map[string]string
		require.NoError(t, client.GetJSON(context.Background(), srv.URL, false, &out))
		assert.Equal(t, "2.5", out["cake"])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))

	var out map[string]string
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, true, &out))
	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}
