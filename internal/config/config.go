package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

// InstrumentSeed defines one instrument to register at startup.
type InstrumentSeed struct {
	Symbol         string
	ReferencePrice float64
}

// Config holds all runtime configuration for the venue.
type Config struct {
	Port     int
	LogLevel string

	// Simulator parameters (runtime-mutable after startup).
	TickInterval      time.Duration
	BidAskSpreadBps   int64
	FeePerShare       float64
	SlippageBps       int64
	MaxPartialFillPct float64

	// Risk limits (runtime-mutable after startup).
	MaxQuantityPerSymbol int64
	MaxNotionalValue     float64
	MaxDailyOrders       int

	Instruments   []InstrumentSeed
	FeedAutostart bool
	RandomSeed    int64 // 0 means seed from the clock

	WebhookTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be > 0")
	}

	spreadBps, err := getInt64("BID_ASK_SPREAD_BPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BID_ASK_SPREAD_BPS: %w", err)
	}
	if spreadBps < 0 {
		return nil, fmt.Errorf("invalid BID_ASK_SPREAD_BPS: must be >= 0")
	}

	feePerShare, err := getFloat("FEE_PER_SHARE", 0.005)
	if err != nil {
		return nil, fmt.Errorf("invalid FEE_PER_SHARE: %w", err)
	}
	if feePerShare < 0 {
		return nil, fmt.Errorf("invalid FEE_PER_SHARE: must be >= 0")
	}

	slippageBps, err := getInt64("SLIPPAGE_BPS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SLIPPAGE_BPS: %w", err)
	}
	if slippageBps < 0 {
		return nil, fmt.Errorf("invalid SLIPPAGE_BPS: must be >= 0")
	}

	maxPartialFillPct, err := getFloat("MAX_PARTIAL_FILL_PCT", 0.35)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PARTIAL_FILL_PCT: %w", err)
	}
	if maxPartialFillPct <= 0 || maxPartialFillPct > 1 {
		return nil, fmt.Errorf("invalid MAX_PARTIAL_FILL_PCT: must be in (0, 1]")
	}

	maxQtyPerSymbol, err := getInt64("MAX_QUANTITY_PER_SYMBOL", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_QUANTITY_PER_SYMBOL: %w", err)
	}
	if maxQtyPerSymbol <= 0 {
		return nil, fmt.Errorf("invalid MAX_QUANTITY_PER_SYMBOL: must be > 0")
	}

	maxNotional, err := getFloat("MAX_NOTIONAL_VALUE", 1000000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_NOTIONAL_VALUE: %w", err)
	}
	if maxNotional <= 0 {
		return nil, fmt.Errorf("invalid MAX_NOTIONAL_VALUE: must be > 0")
	}

	maxDailyOrders, err := getInt("MAX_DAILY_ORDERS", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DAILY_ORDERS: %w", err)
	}
	if maxDailyOrders <= 0 {
		return nil, fmt.Errorf("invalid MAX_DAILY_ORDERS: must be > 0")
	}

	instruments, err := parseInstruments(getStr("INSTRUMENTS", "AAPL:190,MSFT:415,GOOG:142,AMZN:178,TSLA:250"))
	if err != nil {
		return nil, fmt.Errorf("invalid INSTRUMENTS: %w", err)
	}

	feedAutostart, err := getBool("FEED_AUTOSTART", true)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_AUTOSTART: %w", err)
	}

	randomSeed, err := getInt64("RANDOM_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		TickInterval:         tickInterval,
		BidAskSpreadBps:      spreadBps,
		FeePerShare:          feePerShare,
		SlippageBps:          slippageBps,
		MaxPartialFillPct:    maxPartialFillPct,
		MaxQuantityPerSymbol: maxQtyPerSymbol,
		MaxNotionalValue:     maxNotional,
		MaxDailyOrders:       maxDailyOrders,
		Instruments:          instruments,
		FeedAutostart:        feedAutostart,
		RandomSeed:           randomSeed,
		WebhookTimeout:       webhookTimeout,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

// SimConfig returns the startup simulator configuration record.
func (c *Config) SimConfig() domain.SimConfig {
	return domain.SimConfig{
		BidAskSpreadBps:   c.BidAskSpreadBps,
		FeePerShare:       decimal.NewFromFloat(c.FeePerShare),
		SlippageBps:       c.SlippageBps,
		TickInterval:      c.TickInterval,
		MaxPartialFillPct: c.MaxPartialFillPct,
	}
}

// RiskConfig returns the startup risk configuration record.
func (c *Config) RiskConfig() domain.RiskConfig {
	return domain.RiskConfig{
		MaxQuantityPerSymbol: c.MaxQuantityPerSymbol,
		MaxNotionalValue:     decimal.NewFromFloat(c.MaxNotionalValue),
		MaxDailyOrders:       c.MaxDailyOrders,
	}
}

// parseInstruments parses a "SYMBOL:PRICE,SYMBOL:PRICE" list.
func parseInstruments(raw string) ([]InstrumentSeed, error) {
	parts := strings.Split(raw, ",")
	seeds := make([]InstrumentSeed, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, priceStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q must be SYMBOL:PRICE", part)
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("entry %q has an invalid price", part)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("duplicate symbol %q", symbol)
		}
		seen[symbol] = true
		seeds = append(seeds, InstrumentSeed{Symbol: symbol, ReferencePrice: price})
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one instrument is required")
	}
	return seeds, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
