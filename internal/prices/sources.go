package prices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"oceanbot/internal/httpx"
	"oceanbot/internal/netcache"
)

// Number decodes a JSON number or numeric string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse price %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

func usable(v *Number) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f := float64(*v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// Subgraph queries the exchange subgraph for a token's derived USD price.
type Subgraph struct {
	http *httpx.Client
	url  string
}

func NewSubgraph(httpClient *httpx.Client, url string) *Subgraph {
	return &Subgraph{http: httpClient, url: url}
}

type subgraphResp struct {
	Data struct {
		Token *struct {
			ID         string  `json:"id"`
			Symbol     string  `json:"symbol"`
			Decimals   string  `json:"decimals"`
			DerivedUSD *Number `json:"derivedUSD"`
		} `json:"token"`
	} `json:"data"`
}

const tokenQuery = `query Token {
  token(id: "%s") {
    id
    symbol
    decimals
    derivedUSD
  }
}`

// TokenPrice returns ok=false when the token is unknown or priced at zero.
func (s *Subgraph) TokenPrice(ctx context.Context, token common.Address) (float64, bool, error) {
	body, err := json.Marshal(map[string]string{
		"query": fmt.Sprintf(tokenQuery, strings.ToLower(token.Hex())),
	})
	if err != nil {
		return 0, false, err
	}
	var resp subgraphResp
	if _, err := httpx.DoBodyJSON(ctx, s.http, http.MethodPost, s.url, body, nil, &resp); err != nil {
		return 0, false, err
	}
	if resp.Data.Token == nil {
		return 0, false, nil
	}
	price, ok := usable(resp.Data.Token.DerivedUSD)
	return price, ok, nil
}

// Market looks up a token by address on a market-data API.
type Market struct {
	client  *netcache.Client
	baseURL string
}

func NewMarket(client *netcache.Client, baseURL string) *Market {
	return &Market{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type marketResp struct {
	PriceUSD *Number `json:"price_usd"`
	Data     *struct {
		PriceUSD *Number `json:"price_usd"`
		Price    *Number `json:"price"`
	} `json:"data"`
}

// TokenPrice returns ok=false when the response carries no usable USD price.
func (m *Market) TokenPrice(ctx context.Context, token common.Address) (float64, bool, error) {
	var resp marketResp
	if err := m.client.GetJSON(ctx, m.baseURL+"/"+token.Hex(), false, &resp); err != nil {
		return 0, false, err
	}
	if price, ok := usable(resp.PriceUSD); ok {
		return price, true, nil
	}
	if resp.Data != nil {
		if price, ok := usable(resp.Data.PriceUSD); ok {
			return price, true, nil
		}
		if price, ok := usable(resp.Data.Price); ok {
			return price, true, nil
		}
	}
	return 0, false, nil
}

// Aggregator reads a flat symbol->price mapping.
type Aggregator struct {
	client *netcache.Client
	url    string
}

func NewAggregator(client *netcache.Client, url string) *Aggregator {
	return &Aggregator{client: client, url: url}
}

// SymbolPrice looks up the lowercased symbol. Only that entry is decoded, so
// malformed prices for other symbols do not matter.
func (a *Aggregator) SymbolPrice(ctx context.Context, symbol string) (float64, bool, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, false, nil
	}
	var table map[string]json.RawMessage
	if err := a.client.GetJSON(ctx, a.url, false, &table); err != nil {
		return 0, false, err
	}
	raw, ok := table[symbol]
	if !ok {
		return 0, false, nil
	}
	var value Number
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false, nil
	}
	if price, ok := usable(&value); ok {
		return price, true, nil
	}
	return 0, false, nil
}
