// cmd/tradebot runs the paper-trading bot against the mock market-data
// provider. Side channels (metrics, Redis, WebSocket stream, alerts) are
// enabled by their env vars; see config.Load.
//
// Usage:
//
//	go run ./cmd/tradebot
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ganaka-trader/config"
	"ganaka-trader/internal/api"
	"ganaka-trader/internal/bot"
	"ganaka-trader/internal/bus"
	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/gateway"
	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/logger"
	"ganaka-trader/internal/marketdata"
	"ganaka-trader/internal/markethours"
	"ganaka-trader/internal/metrics"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/notification"
	"ganaka-trader/internal/portfolio"
	redisstore "ganaka-trader/internal/store/redis"
	sqlitestore "ganaka-trader/internal/store/sqlite"
	"ganaka-trader/internal/strategy"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	busBuffer      = 1024
	streamBacklog  = 512
	archiveRing    = 4096
	drainTimeout   = 5 * time.Second
	livenessPeriod = 10 * time.Second
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tradebot] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[tradebot] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[tradebot] invalid config: %v", err)
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	slogger := logger.Init("tradebot", level)

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// ---- Market data ----
	mock := marketdata.NewMockProvider(cfg.MockSeed)
	for sym, base := range cfg.BasePrices {
		mock.SetBase(sym, base)
	}
	var provider marketdata.Provider = mock

	var dbs []*sql.DB
	var archive *sqlitestore.AsyncWriter
	archiveCtx, archiveCancel := context.WithCancel(context.Background())
	defer archiveCancel()
	archiveDone := make(chan struct{})
	if cfg.PriceDBPath != "" {
		priceDB, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.PriceDBPath})
		if err != nil {
			log.Fatalf("[tradebot] price archive init failed: %v", err)
		}
		dbs = append(dbs, priceDB.DB())
		archive = sqlitestore.NewAsyncWriter(priceDB, archiveRing, time.Second)
		go func() {
			archive.Run(archiveCtx)
			close(archiveDone)
		}()
		provider = marketdata.NewRecorder(provider, archive, model.DefaultExchange)
		log.Printf("[tradebot] archiving quotes to %s", cfg.PriceDBPath)
	} else {
		close(archiveDone)
	}
	if cfg.ProviderRPS > 0 {
		provider = marketdata.NewLimited(provider, cfg.ProviderRPS, 1)
	}

	// ---- Strategy & ledger ----
	ledger, err := portfolio.NewLedger(cfg.InitialBalance, cfg.MaxPositionSize)
	if err != nil {
		log.Fatalf("[tradebot] ledger: %v", err)
	}
	indicators := indicator.NewEngine(cfg.Indicators, cfg.HistoryLen)
	engine := strategy.NewEngine(cfg.StrategyName,
		strategy.NewCascade(strategy.DefaultRules(cfg.Thresholds)), cfg.FallbackMode)

	executor := execution.NewPaperExecutor(ledger, cfg.SlippageBps)
	var journal *execution.Journal
	if cfg.JournalPath != "" {
		journal, err = execution.NewJournal(cfg.JournalPath)
		if err != nil {
			log.Fatalf("[tradebot] journal init failed: %v", err)
		}
		defer journal.Close()
		dbs = append(dbs, journal.DB())
		executor.WithJournal(journal)
	}

	calendar := markethours.NewNSECalendar()
	for date, name := range cfg.Holidays {
		if err := calendar.AddHoliday(date, name); err != nil {
			log.Fatalf("[tradebot] holiday %q: %v", date, err)
		}
	}
	log.Printf("[tradebot] %s", calendar.Status(time.Now()))

	// ---- Event bus & side channels ----
	// Side channels run on their own context, cancelled only after the bus
	// has flushed, so the final summary reaches every subscriber.
	sideCtx, sideCancel := context.WithCancel(context.Background())
	defer sideCancel()

	events := bus.New(busBuffer)
	events.OnDrop = func(name string, _ model.Event) { prom.IncDrop(name) }

	var wg sync.WaitGroup
	consume := func(name string, run func(context.Context, <-chan model.Event)) {
		ch := events.Subscribe(name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(sideCtx, ch)
		}()
	}

	consume("metrics", prom.Run)

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		pub, err := redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[tradebot] WARNING: redis init failed: %v (continuing without redis)", err)
		} else {
			defer pub.Close()
			logState := pub.Breaker().OnStateChange
			pub.Breaker().OnStateChange = func(from, to redisstore.State) {
				if logState != nil {
					logState(from, to)
				}
				prom.SetBreakerState(int(to))
			}
			rdb = pub.Client()
			consume("redis", pub.Run)
		}
	}

	hub := gateway.NewHub(streamBacklog)
	consume("stream", hub.Run)

	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	consume("alerts", notification.NewDispatcher(notifiers).Run)

	health.StartLivenessChecker(sideCtx, rdb, dbs, livenessPeriod)

	// ---- HTTP ----
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, reg, health)
		metricsSrv.Start()
	}
	var apiSrv *api.Server
	if cfg.APIAddr != "" {
		deps := api.Deps{
			Ledger:  ledger,
			Health:  health,
			Stream:  hub,
			Metrics: metricsHandler,
		}
		if journal != nil {
			deps.Journal = journal
		}
		apiSrv = api.NewServer(cfg.APIAddr, api.NewRouter(deps))
		apiSrv.Start()
	}

	// ---- Session ----
	session, err := bot.New(bot.Options{
		Symbols:         cfg.Symbols,
		Iterations:      cfg.Iterations,
		Interval:        cfg.Interval,
		HistoryLen:      cfg.HistoryLen,
		MarketHoursOnly: cfg.MarketHoursOnly,
	}, bot.Deps{
		Provider:   provider,
		Indicators: indicators,
		Strategy:   engine,
		Executor:   executor,
		Ledger:     ledger,
		Events:     events,
		Metrics:    prom,
		Health:     health,
		Calendar:   calendar,
		Logger:     slogger,
	})
	if err != nil {
		log.Fatalf("[tradebot] session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	busCtx, busCancel := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		events.Run(busCtx)
		close(busDone)
	}()

	slogger.Info("session started",
		slog.String("session", session.ID()),
		slog.Any("symbols", cfg.Symbols),
		slog.Int("iterations", cfg.Iterations),
		slog.Duration("interval", cfg.Interval),
		slog.String("strategy", engine.Name()),
	)

	summary, err := session.Run(ctx)
	if err != nil {
		slogger.Error("session failed", slog.String("error", err.Error()))
	}

	if err := bot.WriteReport(os.Stdout, ledger.Snapshot(), summary); err != nil {
		log.Printf("[tradebot] report: %v", err)
	}

	// ---- Graceful shutdown ----
	log.Println("[tradebot] shutting down...")
	busCancel()
	<-busDone

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		log.Println("[tradebot] WARNING: side channels did not drain in time")
	}
	sideCancel()

	archiveCancel()
	<-archiveDone
	if archive != nil {
		if n := archive.Dropped(); n > 0 {
			log.Printf("[tradebot] WARNING: %d quotes dropped from the archive", n)
		}
		archive.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if apiSrv != nil {
		apiSrv.Stop(shutdownCtx)
	}
	if metricsSrv != nil {
		metricsSrv.Stop(shutdownCtx)
	}

	log.Printf("[tradebot] shutdown complete (dropped events: %d)", events.Dropped())
}
