package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// A missing .env is fine; real deployments inject the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "oceanbot",
		Short:        "Telegram bot for ocean staking pool stats",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Telegram webhook",
		RunE:  runServe,
	}
	addCommonFlags(serveCmd.Flags())
	serveCmd.Flags().String("bot-token", "", "Telegram bot token")
	serveCmd.Flags().String("webhook-url", "", "public base URL to register the webhook under (empty skips registration)")
	serveCmd.Flags().String("webhook-secret", "", "webhook path secret (random when empty)")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	root.AddCommand(serveCmd)

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and persist the ocean list",
		RunE:  runRefresh,
	}
	addCommonFlags(refreshCmd.Flags())
	root.AddCommand(refreshCmd)

	oceansCmd := &cobra.Command{
		Use:   "oceans",
		Short: "Print the current ocean list as JSON",
		RunE:  runOceans,
	}
	addCommonFlags(oceansCmd.Flags())
	oceansCmd.Flags().String("token", "", "only oceans accepting this deposit token address")
	root.AddCommand(oceansCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "BSC RPC URL")
	flags.String("listing-url", "", "ocean listing API URL")
	flags.String("subgraph-url", "", "price subgraph URL")
	flags.String("market-api-url", "", "market price API base URL")
	flags.String("aggregator-api-url", "", "symbol price API URL")
	flags.StringSlice("synthetic-tokens", nil, "token addresses without market prices (comma-separated)")
	flags.Duration("cache-ttl", 10*time.Minute, "ocean list freshness")
	flags.Duration("stuck-threshold", 5*time.Minute, "age after which an in-flight refresh flag is ignored")
	flags.Duration("netcache-ttl", 5*time.Minute, "outbound response cache TTL")
	flags.Duration("block-time", 3*time.Second, "average block time")
	flags.Duration("http-timeout", 10*time.Second, "outbound HTTP timeout")
	flags.Int("http-retries", 1, "outbound HTTP retries")
	flags.Int("listing-attempts", 3, "listing fetch attempts on malformed payloads")
	flags.String("store", "file", "store backend (file, memory, sqlite, postgres)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("sqlite-path", "./data/oceanbot.db", "SQLite database path")
	flags.String("store-dir", "./data/store", "file store directory")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
