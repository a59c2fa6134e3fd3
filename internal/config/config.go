package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OCEANBOT"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	BotToken      string
	WebhookURL    string
	WebhookSecret string
	Listen        string

	RPCURL           string
	ListingURL       string
	SubgraphURL      string
	MarketAPIURL     string
	AggregatorAPIURL string
	SyntheticTokens  []string

	CacheTTL        time.Duration
	StuckThreshold  time.Duration
	NetcacheTTL     time.Duration
	BlockTime       time.Duration
	HTTPTimeout     time.Duration
	HTTPRetries     int
	ListingAttempts int

	Store      string
	PGDSN      string
	SQLitePath string
	StoreDir   string

	LogLevel string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("rpc", "https://bsc-dataseed.binance.org")
	v.SetDefault("listing-url", "https://autoshark.finance/.netlify/functions/oceans")
	v.SetDefault("subgraph-url", "https://api.thegraph.com/subgraphs/name/autoshark-finance/exchange-v1")
	v.SetDefault("market-api-url", "https://api.pancakeswap.info/api/v2/tokens")
	v.SetDefault("aggregator-api-url", "https://api.autoshark.finance/api/prices")
	v.SetDefault("cache-ttl", 10*time.Minute)
	v.SetDefault("stuck-threshold", 5*time.Minute)
	v.SetDefault("netcache-ttl", 5*time.Minute)
	v.SetDefault("block-time", 3*time.Second)
	v.SetDefault("http-timeout", 10*time.Second)
	v.SetDefault("http-retries", 1)
	v.SetDefault("listing-attempts", 3)
	v.SetDefault("store", "file")
	v.SetDefault("sqlite-path", "./data/oceanbot.db")
	v.SetDefault("store-dir", "./data/store")
	v.SetDefault("log-level", "info")
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		BotToken:         v.GetString("bot-token"),
		WebhookURL:       strings.TrimRight(v.GetString("webhook-url"), "/"),
		WebhookSecret:    v.GetString("webhook-secret"),
		Listen:           v.GetString("listen"),
		RPCURL:           v.GetString("rpc"),
		ListingURL:       v.GetString("listing-url"),
		SubgraphURL:      v.GetString("subgraph-url"),
		MarketAPIURL:     v.GetString("market-api-url"),
		AggregatorAPIURL: v.GetString("aggregator-api-url"),
		SyntheticTokens:  getStringSlice(v, "synthetic-tokens"),
		CacheTTL:         v.GetDuration("cache-ttl"),
		StuckThreshold:   v.GetDuration("stuck-threshold"),
		NetcacheTTL:      v.GetDuration("netcache-ttl"),
		BlockTime:        v.GetDuration("block-time"),
		HTTPTimeout:      v.GetDuration("http-timeout"),
		HTTPRetries:      v.GetInt("http-retries"),
		ListingAttempts:  v.GetInt("listing-attempts"),
		Store:            strings.ToLower(v.GetString("store")),
		PGDSN:            v.GetString("pg-dsn"),
		SQLitePath:       v.GetString("sqlite-path"),
		StoreDir:         v.GetString("store-dir"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.ListingURL == "" {
		return fmt.Errorf("listing url is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache-ttl must be positive")
	}
	if c.StuckThreshold <= 0 || c.StuckThreshold >= c.CacheTTL {
		return fmt.Errorf("stuck-threshold must be positive and shorter than cache-ttl (%s)", c.CacheTTL)
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("block-time must be positive")
	}
	if c.ListingAttempts <= 0 {
		return fmt.Errorf("listing-attempts must be at least 1")
	}
	switch c.Store {
	case "file", "memory", "sqlite":
	case "postgres":
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	for _, token := range c.SyntheticTokens {
		if !common.IsHexAddress(token) {
			return fmt.Errorf("invalid synthetic token address: %s", token)
		}
	}
	return nil
}

// ValidateServe additionally requires what the webhook server needs.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.BotToken == "" {
		return fmt.Errorf("bot-token is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
