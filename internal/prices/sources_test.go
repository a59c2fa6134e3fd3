package prices

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanbot/internal/httpx"
	"oceanbot/internal/netcache"
)

func TestSubgraphTokenPrice(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		gotQuery = req["query"]
		if strings.Contains(gotQuery, strings.ToLower(jaws.Hex())) {
			_, _ = w.Write([]byte(`{"data":{"token":{"id":"x","symbol":"JAWS","decimals":"18","derivedUSD":"0.0512"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"token":null}}`))
	}))
	defer srv.Close()

	s := NewSubgraph(httpx.New(2*time.Second, 0), srv.URL)

	price, ok, err := s.TokenPrice(context.Background(), jaws)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.0512, price, 1e-12)
	assert.Contains(t, gotQuery, strings.ToLower(jaws.Hex()))

	_, ok, err = s.TokenPrice(context.Background(), guard)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubgraphZeroPriceIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":{"id":"x","symbol":"JAWS","decimals":"18","derivedUSD":"0"}}}`))
	}))
	defer srv.Close()

	_, ok, err := NewSubgraph(httpx.New(2*time.Second, 0), srv.URL).TokenPrice(context.Background(), jaws)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarketTokenPriceShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tokens/"+jaws.Hex(), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price_usd":"1.75"}`))
	})
	mux.HandleFunc("/tokens/"+guard.Hex(), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"updated_at":1,"data":{"name":"Guard","price":"0.31"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewMarket(netcache.NewClient(httpx.New(2*time.Second, 0), netcache.New(time.Minute)), srv.URL+"/tokens/")

	price, ok, err := m.TokenPrice(context.Background(), jaws)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.75, price)

	price, ok, err = m.TokenPrice(context.Background(), guard)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.31, price)
}

func TestMarketNullPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price_usd":null}`))
	}))
	defer srv.Close()

	m := NewMarket(netcache.NewClient(httpx.New(2*time.Second, 0), netcache.New(time.Minute)), srv.URL)
	_, ok, err := m.TokenPrice(context.Background(), jaws)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregatorSymbolPriceUsesLowercasedKeyAndCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"jaws":"0.05","JAWS":"9","guard":0.3,"fins":null,"weird":"N/A"}`))
	}))
	defer srv.Close()

	a := NewAggregator(netcache.NewClient(httpx.New(2*time.Second, 0), netcache.New(time.Minute)), srv.URL)

	for i := 0; i < 5; i++ {
		price, ok, err := a.SymbolPrice(context.Background(), "JAWS")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0.05, price)
	}

	price, ok, err := a.SymbolPrice(context.Background(), "Guard")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.3, price)

	_, ok, err = a.SymbolPrice(context.Background(), "fins")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.SymbolPrice(context.Background(), "weird")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.SymbolPrice(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, hits)
}

func TestAggregatorIgnoresMalformedNeighbours(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cake":"2.5","weird":"N/A"}`))
	}))
	defer srv.Close()

	a := NewAggregator(netcache.NewClient(httpx.New(2*time.Second, 0), netcache.New(time.Minute)), srv.URL)

	price, ok, err := a.SymbolPrice(context.Background(), "CAKE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, price)
}
