package config

import (
	"fmt"
	"os"
	"strings"

	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/strategy"

	"gopkg.in/yaml.v3"
)

// StrategyFile is the YAML layout of STRATEGY_FILE. Zero values leave the
// environment settings in place.
//
//	name: sma-rsi
//	symbols: [RELIANCE, TCS, INFY]
//	indicators: {sma_short: 20, sma_long: 50, rsi_period: 14}
//	thresholds: {oversold: 30, overbought: 70}
//	fallback_mode: hold
//	base_prices: {RELIANCE: 2900, TCS: 3500}
//	holidays: {"2026-03-03": "exchange maintenance"}
type StrategyFile struct {
	Name         string              `yaml:"name"`
	Symbols      []string            `yaml:"symbols"`
	Indicators   indicator.Config    `yaml:"indicators"`
	Thresholds   strategy.Thresholds `yaml:"thresholds"`
	FallbackMode string              `yaml:"fallback_mode"`
	BasePrices   map[string]float64  `yaml:"base_prices"`
	Holidays     map[string]string   `yaml:"holidays"`
}

// LoadStrategyFile reads and decodes a strategy YAML file. Unknown keys are
// rejected so typos surface early.
func LoadStrategyFile(path string) (*StrategyFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open strategy file: %w", err)
	}
	defer f.Close()

	var sf StrategyFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &sf, nil
}

// Apply overlays the non-zero fields of sf onto cfg.
func (sf *StrategyFile) Apply(cfg *Config) {
	if sf.Name != "" {
		cfg.StrategyName = sf.Name
	}
	if len(sf.Symbols) > 0 {
		cfg.Symbols = splitAndTrim(strings.Join(sf.Symbols, ","))
	}
	if sf.Indicators.SMAShort != 0 {
		cfg.Indicators.SMAShort = sf.Indicators.SMAShort
	}
	if sf.Indicators.SMALong != 0 {
		cfg.Indicators.SMALong = sf.Indicators.SMALong
	}
	if sf.Indicators.RSIPeriod != 0 {
		cfg.Indicators.RSIPeriod = sf.Indicators.RSIPeriod
	}
	if sf.Thresholds.Oversold != 0 {
		cfg.Thresholds.Oversold = sf.Thresholds.Oversold
	}
	if sf.Thresholds.Overbought != 0 {
		cfg.Thresholds.Overbought = sf.Thresholds.Overbought
	}
	if sf.FallbackMode != "" {
		cfg.FallbackMode = strategy.FallbackMode(strings.ToLower(sf.FallbackMode))
	}
	if len(sf.BasePrices) > 0 {
		if cfg.BasePrices == nil {
			cfg.BasePrices = make(map[string]float64, len(sf.BasePrices))
		}
		for sym, p := range sf.BasePrices {
			cfg.BasePrices[strings.ToUpper(sym)] = p
		}
	}
	if len(sf.Holidays) > 0 {
		if cfg.Holidays == nil {
			cfg.Holidays = make(map[string]string, len(sf.Holidays))
		}
		for d, name := range sf.Holidays {
			cfg.Holidays[d] = name
		}
	}
}
