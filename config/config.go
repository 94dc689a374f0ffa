// Package config loads bot settings from the environment (optionally via a
// .env file) and an optional YAML strategy file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/logger"
	"ganaka-trader/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Session
	Symbols         []string
	InitialBalance  decimal.Decimal
	MaxPositionSize decimal.Decimal
	Iterations      int // 0 runs until cancelled
	Interval        time.Duration
	HistoryLen      int
	MarketHoursOnly bool

	// Strategy
	StrategyName string
	Indicators   indicator.Config
	Thresholds   strategy.Thresholds
	FallbackMode strategy.FallbackMode
	StrategyFile string

	// Market data
	MockSeed    int64
	ProviderRPS float64
	BasePrices  map[string]float64
	Holidays    map[string]string

	// Execution
	SlippageBps int64

	// Infrastructure (empty disables the component)
	JournalPath   string
	PriceDBPath   string
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	APIAddr       string

	// Notifications
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	LogLevel string
}

// Load reads configuration from environment variables with defaults, then
// applies STRATEGY_FILE when set. A missing .env file is ignored.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Symbols:         splitAndTrim(getEnv("SYMBOLS", "RELIANCE,TCS,INFY")),
		Iterations:      getEnvInt("ITERATIONS", 3),
		HistoryLen:      getEnvInt("HISTORY_LEN", 50),
		MarketHoursOnly: getEnvBool("MARKET_HOURS_ONLY", false),

		StrategyName: getEnv("STRATEGY_NAME", "sma-rsi"),
		Indicators: indicator.Config{
			SMAShort:  getEnvInt("SMA_SHORT", 20),
			SMALong:   getEnvInt("SMA_LONG", 50),
			RSIPeriod: getEnvInt("RSI_PERIOD", indicator.DefaultRSIPeriod),
		},
		Thresholds: strategy.Thresholds{
			Oversold:   getEnvFloat("RSI_OVERSOLD", 30),
			Overbought: getEnvFloat("RSI_OVERBOUGHT", 70),
		},
		FallbackMode: strategy.FallbackMode(strings.ToLower(getEnv("FALLBACK_MODE", string(strategy.FallbackNeutral)))),
		StrategyFile: getEnv("STRATEGY_FILE", ""),

		MockSeed:    int64(getEnvInt("MOCK_SEED", 0)),
		ProviderRPS: getEnvFloat("PROVIDER_RPS", 0),

		SlippageBps: int64(getEnvInt("SLIPPAGE_BPS", 0)),

		JournalPath:   getEnv("JOURNAL_PATH", ""),
		PriceDBPath:   getEnv("PRICE_DB_PATH", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		APIAddr:       getEnv("API_ADDR", ""),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.InitialBalance, err = getEnvDecimal("INITIAL_BALANCE", "100000"); err != nil {
		return nil, err
	}
	if cfg.MaxPositionSize, err = getEnvDecimal("MAX_POSITION_SIZE", "10000"); err != nil {
		return nil, err
	}
	if cfg.Interval, err = getEnvDuration("INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}

	if cfg.StrategyFile != "" {
		sf, err := LoadStrategyFile(cfg.StrategyFile)
		if err != nil {
			return nil, err
		}
		sf.Apply(cfg)
		log.Printf("[config] applied strategy file %s", cfg.StrategyFile)
	}
	return cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("SYMBOLS is empty"))
	}
	if !c.InitialBalance.IsPositive() {
		errs = append(errs, fmt.Errorf("INITIAL_BALANCE must be positive, got %s", c.InitialBalance))
	}
	if !c.MaxPositionSize.IsPositive() {
		errs = append(errs, fmt.Errorf("MAX_POSITION_SIZE must be positive, got %s", c.MaxPositionSize))
	}
	if c.Iterations < 0 {
		errs = append(errs, fmt.Errorf("ITERATIONS must be >= 0, got %d", c.Iterations))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("INTERVAL must be >= 0, got %s", c.Interval))
	}
	if c.HistoryLen <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LEN must be positive, got %d", c.HistoryLen))
	}
	ind := c.Indicators
	if ind.SMAShort <= 0 || ind.SMALong <= 0 || ind.RSIPeriod <= 0 {
		errs = append(errs, fmt.Errorf("indicator periods must be positive: sma_short=%d sma_long=%d rsi_period=%d",
			ind.SMAShort, ind.SMALong, ind.RSIPeriod))
	} else if ind.SMAShort >= ind.SMALong {
		errs = append(errs, fmt.Errorf("SMA_SHORT (%d) must be below SMA_LONG (%d)", ind.SMAShort, ind.SMALong))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := strategy.ParseFallbackMode(string(c.FallbackMode)); err != nil {
		errs = append(errs, err)
	}
	if c.SlippageBps < 0 {
		errs = append(errs, fmt.Errorf("SLIPPAGE_BPS must be >= 0, got %d", c.SlippageBps))
	}
	if c.ProviderRPS < 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_RPS must be >= 0, got %g", c.ProviderRPS))
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return def
}

func getEnvDecimal(key, def string) (decimal.Decimal, error) {
	v := getEnv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
	return d, nil
}

// getEnvDuration accepts Go durations ("1m30s") or plain seconds ("3").
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
	return d, nil
}
