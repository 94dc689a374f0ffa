// cmd/backtest replays archived quotes from SQLite through the indicator
// engine, strategy cascade and paper ledger, then prints the session report.
// Strategy and ledger settings come from the same env vars as cmd/tradebot.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/prices.db --speed=0 --symbols=RELIANCE,TCS
//	go run ./cmd/backtest --db=/tmp/mock.db --seed-mock=500
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ganaka-trader/config"
	"ganaka-trader/internal/bot"
	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/logger"
	"ganaka-trader/internal/marketdata"
	"ganaka-trader/internal/marketdata/replay"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	sqlitestore "ganaka-trader/internal/store/sqlite"
	"ganaka-trader/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	symbolsStr := flag.String("symbols", "", "Comma-separated symbols to replay (default: all archived)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start replay from (0=all)")
	dbPath := flag.String("db", "data/prices.db", "Path to SQLite price archive")
	seedMock := flag.Int("seed-mock", 0, "Archive N mock quotes per configured symbol before replaying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[backtest] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[backtest] invalid config: %v", err)
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	slogger := logger.Init("backtest", level)

	// Setup context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *seedMock > 0 {
		if err := seed(ctx, *dbPath, cfg, *seedMock); err != nil {
			log.Fatalf("[backtest] seeding failed: %v", err)
		}
	}

	// Open SQLite
	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	ledger, err := portfolio.NewLedger(cfg.InitialBalance, cfg.MaxPositionSize)
	if err != nil {
		log.Fatalf("[backtest] ledger: %v", err)
	}
	bt, err := bot.NewBacktest(bot.Deps{
		Indicators: indicator.NewEngine(cfg.Indicators, cfg.HistoryLen),
		Strategy: strategy.NewEngine(cfg.StrategyName,
			strategy.NewCascade(strategy.DefaultRules(cfg.Thresholds)), cfg.FallbackMode),
		Executor: execution.NewPaperExecutor(ledger, cfg.SlippageBps),
		Ledger:   ledger,
		Logger:   slogger,
	})
	if err != nil {
		log.Fatalf("[backtest] init failed: %v", err)
	}

	// Replay in background
	replayer := replay.New(reader)
	quoteCh := make(chan model.Quote, 10000)
	go func() {
		defer close(quoteCh)
		if err := replayer.Run(ctx, parseSymbols(*symbolsStr), *fromTS, *speed, quoteCh); err != nil {
			log.Printf("[backtest] replay error: %v", err)
		}
	}()

	start := time.Now()
	summary, stats, err := bt.Run(ctx, quoteCh)
	if err != nil {
		log.Printf("[backtest] run stopped: %v", err)
	}

	if err := bot.WriteReport(os.Stdout, ledger.Snapshot(), summary); err != nil {
		log.Printf("[backtest] report: %v", err)
	}

	// Print stats
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Quotes processed:  %-16d ║\n", stats.Quotes)
	fmt.Printf("║  BUY signals:       %-16d ║\n", stats.Signals[string(strategy.DecisionBuy)])
	fmt.Printf("║  SELL signals:      %-16d ║\n", stats.Signals[string(strategy.DecisionSell)])
	fmt.Printf("║  HOLD signals:      %-16d ║\n", stats.Signals[string(strategy.DecisionHold)])
	fmt.Printf("║  Fills:             %-16d ║\n", stats.Fills)
	fmt.Printf("║  Rejected:          %-16d ║\n", stats.Rejected)
	fmt.Printf("║  Elapsed:           %-16s ║\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}

// seed archives n mock quotes per configured symbol, one second apart and
// ending now.
func seed(ctx context.Context, path string, cfg *config.Config, n int) error {
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
	if err != nil {
		return err
	}
	defer w.Close()

	mock := marketdata.NewMockProvider(cfg.MockSeed)
	for sym, base := range cfg.BasePrices {
		mock.SetBase(sym, base)
	}

	start := time.Now().Add(-time.Duration(n) * time.Second)
	for _, sym := range cfg.Symbols {
		prices, err := mock.History(ctx, sym, n)
		if err != nil {
			return fmt.Errorf("mock history %s: %w", sym, err)
		}
		batch := make([]model.Quote, len(prices))
		for i, p := range prices {
			batch[i] = model.Quote{
				Symbol:   sym,
				Exchange: model.DefaultExchange,
				Price:    p,
				TS:       start.Add(time.Duration(i) * time.Second),
			}
		}
		if err := w.WriteBatch(ctx, batch); err != nil {
			return fmt.Errorf("archive %s: %w", sym, err)
		}
	}
	log.Printf("[backtest] seeded %d mock quotes for %d symbols into %s", n, len(cfg.Symbols), path)
	return nil
}

func parseSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
