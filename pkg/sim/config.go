package sim

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// InstrumentParams defines the price process for one simulated symbol.
// Amplitude and frequency shape the sinusoidal drift, so different
// symbols move with different volatility and rhythm.
type InstrumentParams struct {
	Symbol         string
	Name           string
	BasePrice      float64
	DriftAmplitude float64
	DriftFrequency float64
}

// DefaultInstruments returns the simulated Magnificent 7 universe.
func DefaultInstruments() []InstrumentParams {
	return []InstrumentParams{
		{Symbol: "AAPL", Name: "Apple Inc.", BasePrice: 175.0, DriftAmplitude: 0.015, DriftFrequency: 2},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", BasePrice: 140.0, DriftAmplitude: 0.015, DriftFrequency: 2},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", BasePrice: 145.0, DriftAmplitude: 0.015, DriftFrequency: 2},
		{Symbol: "META", Name: "Meta Platforms Inc.", BasePrice: 320.0, DriftAmplitude: 0.02, DriftFrequency: 1.5},
		{Symbol: "MSFT", Name: "Microsoft Corporation", BasePrice: 380.0, DriftAmplitude: 0.015, DriftFrequency: 2},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", BasePrice: 450.0, DriftAmplitude: 0.03, DriftFrequency: 2},
		{Symbol: "TSLA", Name: "Tesla Inc.", BasePrice: 240.0, DriftAmplitude: 0.025, DriftFrequency: 3},
	}
}

// Config holds all tuning knobs for the market simulator.
type Config struct {
	// Order flow
	OrderRate    float64 // average orders per second submitted to the active book
	WarmupOrders int     // orders seeded into the active book before the loop starts

	// Price process
	PriceUpdateInterval time.Duration // how often reference prices drift
	NoisePercent        float64       // random variation added to the drift multiplier

	// Order shaping around the reference price
	SpreadPercent    float64 // distance between generated bid and ask prices
	VariationPercent float64 // random jitter applied to each generated price

	// Quantity range in whole shares
	MinQuantity int
	MaxQuantity int
}

// LoadConfig loads simulator configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SIM_ORDER_RATE", 20.0)
	v.SetDefault("SIM_WARMUP_ORDERS", 50)
	v.SetDefault("SIM_PRICE_UPDATE_SECONDS", 15)
	v.SetDefault("SIM_NOISE_PERCENT", 0.01)
	v.SetDefault("SIM_SPREAD_PERCENT", 0.001)
	v.SetDefault("SIM_VARIATION_PERCENT", 0.002)
	v.SetDefault("SIM_MIN_QUANTITY", 50)
	v.SetDefault("SIM_MAX_QUANTITY", 550)

	v.AutomaticEnv()

	cfg := &Config{
		OrderRate:           v.GetFloat64("SIM_ORDER_RATE"),
		WarmupOrders:        v.GetInt("SIM_WARMUP_ORDERS"),
		PriceUpdateInterval: time.Duration(v.GetInt("SIM_PRICE_UPDATE_SECONDS")) * time.Second,
		NoisePercent:        v.GetFloat64("SIM_NOISE_PERCENT"),
		SpreadPercent:       v.GetFloat64("SIM_SPREAD_PERCENT"),
		VariationPercent:    v.GetFloat64("SIM_VARIATION_PERCENT"),
		MinQuantity:         v.GetInt("SIM_MIN_QUANTITY"),
		MaxQuantity:         v.GetInt("SIM_MAX_QUANTITY"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid simulator configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.OrderRate <= 0 {
		return fmt.Errorf("SIM_ORDER_RATE must be positive")
	}
	if cfg.WarmupOrders < 0 {
		return fmt.Errorf("SIM_WARMUP_ORDERS must not be negative")
	}
	if cfg.PriceUpdateInterval <= 0 {
		return fmt.Errorf("SIM_PRICE_UPDATE_SECONDS must be positive")
	}
	if cfg.SpreadPercent <= 0 {
		return fmt.Errorf("SIM_SPREAD_PERCENT must be positive")
	}
	if cfg.VariationPercent < 0 {
		return fmt.Errorf("SIM_VARIATION_PERCENT must not be negative")
	}
	if cfg.MinQuantity <= 0 {
		return fmt.Errorf("SIM_MIN_QUANTITY must be positive")
	}
	if cfg.MaxQuantity < cfg.MinQuantity {
		return fmt.Errorf("SIM_MAX_QUANTITY must be at least SIM_MIN_QUANTITY")
	}
	return nil
}
