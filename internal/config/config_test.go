package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "TICK_INTERVAL", "BID_ASK_SPREAD_BPS",
		"FEE_PER_SHARE", "SLIPPAGE_BPS", "MAX_PARTIAL_FILL_PCT",
		"MAX_QUANTITY_PER_SYMBOL", "MAX_NOTIONAL_VALUE", "MAX_DAILY_ORDERS",
		"INSTRUMENTS", "FEED_AUTOSTART", "RANDOM_SEED", "WEBHOOK_TIMEOUT",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.TickInterval != 2*time.Second {
		t.Errorf("TickInterval = %v, want 2s", cfg.TickInterval)
	}
	if cfg.BidAskSpreadBps != 10 {
		t.Errorf("BidAskSpreadBps = %d, want 10", cfg.BidAskSpreadBps)
	}
	if cfg.FeePerShare != 0.005 {
		t.Errorf("FeePerShare = %v, want 0.005", cfg.FeePerShare)
	}
	if cfg.SlippageBps != 5 {
		t.Errorf("SlippageBps = %d, want 5", cfg.SlippageBps)
	}
	if cfg.MaxPartialFillPct != 0.35 {
		t.Errorf("MaxPartialFillPct = %v, want 0.35", cfg.MaxPartialFillPct)
	}
	if cfg.MaxQuantityPerSymbol != 10000 {
		t.Errorf("MaxQuantityPerSymbol = %d, want 10000", cfg.MaxQuantityPerSymbol)
	}
	if cfg.MaxNotionalValue != 1000000 {
		t.Errorf("MaxNotionalValue = %v, want 1000000", cfg.MaxNotionalValue)
	}
	if cfg.MaxDailyOrders != 200 {
		t.Errorf("MaxDailyOrders = %d, want 200", cfg.MaxDailyOrders)
	}
	if len(cfg.Instruments) != 5 {
		t.Errorf("len(Instruments) = %d, want 5", len(cfg.Instruments))
	}
	if cfg.Instruments[0].Symbol != "AAPL" || cfg.Instruments[0].ReferencePrice != 190 {
		t.Errorf("Instruments[0] = %+v, want AAPL at 190", cfg.Instruments[0])
	}
	if !cfg.FeedAutostart {
		t.Error("FeedAutostart = false, want true")
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("RandomSeed = %d, want 0", cfg.RandomSeed)
	}
	if cfg.WebhookTimeout != 5*time.Second {
		t.Errorf("WebhookTimeout = %v, want 5s", cfg.WebhookTimeout)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TICK_INTERVAL", "500ms")
	t.Setenv("BID_ASK_SPREAD_BPS", "25")
	t.Setenv("FEE_PER_SHARE", "0.01")
	t.Setenv("SLIPPAGE_BPS", "12")
	t.Setenv("MAX_PARTIAL_FILL_PCT", "0.5")
	t.Setenv("MAX_QUANTITY_PER_SYMBOL", "500")
	t.Setenv("MAX_NOTIONAL_VALUE", "250000")
	t.Setenv("MAX_DAILY_ORDERS", "50")
	t.Setenv("INSTRUMENTS", "NVDA:880.5,AMD:160")
	t.Setenv("FEED_AUTOSTART", "false")
	t.Setenv("RANDOM_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.TickInterval != 500*time.Millisecond {
		t.Errorf("TickInterval = %v, want 500ms", cfg.TickInterval)
	}
	if cfg.BidAskSpreadBps != 25 {
		t.Errorf("BidAskSpreadBps = %d, want 25", cfg.BidAskSpreadBps)
	}
	if cfg.FeePerShare != 0.01 {
		t.Errorf("FeePerShare = %v, want 0.01", cfg.FeePerShare)
	}
	if cfg.SlippageBps != 12 {
		t.Errorf("SlippageBps = %d, want 12", cfg.SlippageBps)
	}
	if cfg.MaxPartialFillPct != 0.5 {
		t.Errorf("MaxPartialFillPct = %v, want 0.5", cfg.MaxPartialFillPct)
	}
	if cfg.MaxQuantityPerSymbol != 500 {
		t.Errorf("MaxQuantityPerSymbol = %d, want 500", cfg.MaxQuantityPerSymbol)
	}
	if cfg.MaxNotionalValue != 250000 {
		t.Errorf("MaxNotionalValue = %v, want 250000", cfg.MaxNotionalValue)
	}
	if cfg.MaxDailyOrders != 50 {
		t.Errorf("MaxDailyOrders = %d, want 50", cfg.MaxDailyOrders)
	}
	want := []InstrumentSeed{{Symbol: "NVDA", ReferencePrice: 880.5}, {Symbol: "AMD", ReferencePrice: 160}}
	if len(cfg.Instruments) != len(want) {
		t.Fatalf("len(Instruments) = %d, want %d", len(cfg.Instruments), len(want))
	}
	for i, seed := range want {
		if cfg.Instruments[i] != seed {
			t.Errorf("Instruments[%d] = %+v, want %+v", i, cfg.Instruments[i], seed)
		}
	}
	if cfg.FeedAutostart {
		t.Error("FeedAutostart = true, want false")
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("RandomSeed = %d, want 42", cfg.RandomSeed)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"PORT", "not-a-number"},
		{"LOG_LEVEL", "verbose"},
		{"TICK_INTERVAL", "not-a-duration"},
		{"TICK_INTERVAL", "-1s"},
		{"BID_ASK_SPREAD_BPS", "abc"},
		{"BID_ASK_SPREAD_BPS", "-5"},
		{"FEE_PER_SHARE", "abc"},
		{"FEE_PER_SHARE", "-0.01"},
		{"SLIPPAGE_BPS", "-1"},
		{"MAX_PARTIAL_FILL_PCT", "0"},
		{"MAX_PARTIAL_FILL_PCT", "1.5"},
		{"MAX_QUANTITY_PER_SYMBOL", "0"},
		{"MAX_NOTIONAL_VALUE", "-100"},
		{"MAX_DAILY_ORDERS", "0"},
		{"FEED_AUTOSTART", "maybe"},
		{"RANDOM_SEED", "abc"},
		{"WEBHOOK_TIMEOUT", "not-a-duration"},
		{"READ_TIMEOUT", "not-a-duration"},
		{"WRITE_TIMEOUT", "not-a-duration"},
		{"IDLE_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestParseInstruments(t *testing.T) {
	seeds, err := parseInstruments("AAPL:190, MSFT:415.25 ,GOOG:142")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []InstrumentSeed{
		{Symbol: "AAPL", ReferencePrice: 190},
		{Symbol: "MSFT", ReferencePrice: 415.25},
		{Symbol: "GOOG", ReferencePrice: 142},
	}
	if len(seeds) != len(want) {
		t.Fatalf("len(seeds) = %d, want %d", len(seeds), len(want))
	}
	for i, seed := range want {
		if seeds[i] != seed {
			t.Errorf("seeds[%d] = %+v, want %+v", i, seeds[i], seed)
		}
	}
}

func TestParseInstruments_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only commas", ",,,"},
		{"missing price", "AAPL"},
		{"bad price", "AAPL:cheap"},
		{"zero price", "AAPL:0"},
		{"negative price", "AAPL:-5"},
		{"duplicate symbol", "AAPL:190,AAPL:200"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseInstruments(tc.raw)
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestSimConfig(t *testing.T) {
	cfg := &Config{
		TickInterval:      3 * time.Second,
		BidAskSpreadBps:   20,
		FeePerShare:       0.01,
		SlippageBps:       8,
		MaxPartialFillPct: 0.25,
	}

	sim := cfg.SimConfig()
	if sim.BidAskSpreadBps != 20 {
		t.Errorf("BidAskSpreadBps = %d, want 20", sim.BidAskSpreadBps)
	}
	if !sim.FeePerShare.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("FeePerShare = %s, want 0.01", sim.FeePerShare)
	}
	if sim.SlippageBps != 8 {
		t.Errorf("SlippageBps = %d, want 8", sim.SlippageBps)
	}
	if sim.TickInterval != 3*time.Second {
		t.Errorf("TickInterval = %v, want 3s", sim.TickInterval)
	}
	if sim.MaxPartialFillPct != 0.25 {
		t.Errorf("MaxPartialFillPct = %v, want 0.25", sim.MaxPartialFillPct)
	}
}

func TestRiskConfig(t *testing.T) {
	cfg := &Config{
		MaxQuantityPerSymbol: 2000,
		MaxNotionalValue:     500000,
		MaxDailyOrders:       25,
	}

	risk := cfg.RiskConfig()
	if risk.MaxQuantityPerSymbol != 2000 {
		t.Errorf("MaxQuantityPerSymbol = %d, want 2000", risk.MaxQuantityPerSymbol)
	}
	if !risk.MaxNotionalValue.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("MaxNotionalValue = %s, want 500000", risk.MaxNotionalValue)
	}
	if risk.MaxDailyOrders != 25 {
		t.Errorf("MaxDailyOrders = %d, want 25", risk.MaxDailyOrders)
	}
}
