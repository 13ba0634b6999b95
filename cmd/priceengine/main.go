// cmd/priceengine: simulated character market.
//
// Drives a fixed-interval tick loop that recomputes every character's price
// (story-arc multipliers, gaussian volatility, major events) and fans the
// resulting updates out to WebSocket subscribers, a Redis publisher, and a
// SQLite history writer.
//
// Config (env vars, .env supported):
//
//	LISTEN_ADDR          : WebSocket server address   (default: ":8765")
//	METRICS_ADDR         : /metrics and /healthz      (default: ":9090")
//	TICK_INTERVAL_MS     : simulation tick pace       (default: "1000")
//	EVENT_PROBABILITY    : per-tick event chance      (default: "0.10")
//	EVENT_DURATION_TICKS : event window length        (default: "10")
//	REDIS_ADDR           : Redis publisher, "" off    (default: "localhost:6379")
//	SQLITE_PATH          : history DB path, "" off    (default: "data/prices.db")
//	RNG_SEED             : deterministic runs, 0=time (default: "0")
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"price-engine/config"
	"price-engine/internal/bus"
	"price-engine/internal/engine"
	"price-engine/internal/gateway"
	"price-engine/internal/logger"
	"price-engine/internal/metrics"
	"price-engine/internal/model"
	redisstore "price-engine/internal/store/redis"
	sqlitestore "price-engine/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	slogger := logger.Init("price-engine", slog.LevelInfo)

	// .env is optional; real env vars win.
	_ = godotenv.Load()
	cfg := config.Load()

	slogger.Info("starting price engine",
		slog.String("listen_addr", cfg.ListenAddr),
		slog.String("tick_interval", cfg.TickInterval.String()))

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Shutdown context ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Build the market ----
	market, err := engine.NewMarket(engine.Config{
		TickInterval:     cfg.TickInterval,
		EventProbability: cfg.EventProbability,
		EventDuration:    int64(cfg.EventDuration),
		SummaryEvery:     int64(cfg.SummaryEvery),
		Seed:             cfg.Seed,
	}, engine.SeedCharacters(), engine.StoryArcs(), prom)
	if err != nil {
		log.Fatalf("[main] market init failed: %v", err)
	}
	market.OnTick = health.SetLastTickTime

	// ---- Fan-out: engine -> hub / redis / sqlite ----
	updatesCh := make(chan []model.PriceUpdate, 64)
	fanout := bus.New(256)
	fanout.OnDrop = func(sinkIdx int) {
		prom.FanoutDropsTotal.WithLabelValues(strconv.Itoa(sinkIdx)).Inc()
	}

	hubCh := fanout.Subscribe()

	// ---- SQLite history writer (optional) ----
	if cfg.SQLitePath != "" {
		os.MkdirAll("data", 0o755)
		sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath}, prom)
		if err != nil {
			log.Fatalf("[main] sqlite init failed: %v", err)
		}
		defer sqlWriter.Close()
		health.SetSQLiteOK(true)
		go sqlWriter.Run(ctx, fanout.Subscribe())
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
		log.Println("[main] sqlite history writer ready")
	} else {
		health.SetSQLiteOK(true) // disabled, not failing
	}

	// ---- Redis publisher (optional, degrades gracefully) ----
	if cfg.RedisAddr != "" {
		redisWriter, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, prom)
		if err != nil {
			log.Printf("[main] WARNING: redis init failed: %v (continuing without redis)", err)
			health.SetRedisConnected(false)
		} else {
			health.SetRedisConnected(true)
			go redisWriter.Run(ctx, fanout.Subscribe())
			health.StartLivenessChecker(ctx, redisWriter.Client(), nil, 10*time.Second)
			log.Println("[main] redis publisher ready")
		}
	} else {
		health.SetRedisConnected(true) // disabled, not failing
	}

	go fanout.Run(ctx, updatesCh)

	// ---- WebSocket hub ----
	hub := gateway.NewHub(market.Snapshot, prom)
	health.ClientCount = hub.ClientCount
	go hub.Run(ctx, hubCh)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"price-engine"}`)
	})
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[main] listening on %s (WebSocket: ws://localhost%s/ws)", cfg.ListenAddr, cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	// ---- Start the tick loop ----
	go market.Run(ctx, updatesCh)

	// ---- Wait for shutdown ----
	<-sigCh
	slogger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	// Give sinks a moment to flush their final batches.
	time.Sleep(200 * time.Millisecond)
	slogger.Info("price engine stopped")
}
