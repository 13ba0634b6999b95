// Package metrics exposes Prometheus metrics and a health endpoint for the
// price engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine and its sinks.
type Metrics struct {
	TicksTotal            prometheus.Counter
	PriceUpdatesTotal     prometheus.Counter
	ComputeErrorsTotal    prometheus.Counter
	EventTriggersTotal    prometheus.Counter
	PhaseTransitionsTotal prometheus.Counter
	DroppedBatches        prometheus.Counter
	TickDuration          prometheus.Histogram

	WSClients        prometheus.Gauge
	BroadcastsTotal  prometheus.Counter
	WSDroppedMsgs    prometheus.Counter
	FanoutDropsTotal *prometheus.CounterVec // labels: sink

	RedisWriteDur   prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_ticks_total",
			Help: "Total simulation ticks completed",
		}),
		PriceUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_price_updates_total",
			Help: "Total per-character price updates emitted",
		}),
		ComputeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_compute_errors_total",
			Help: "Price computations that degenerated (NaN/Inf) and held the previous price",
		}),
		EventTriggersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_event_triggers_total",
			Help: "Major event activations from the random roll",
		}),
		PhaseTransitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_phase_transitions_total",
			Help: "Story arc advancements",
		}),
		DroppedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_dropped_batches_total",
			Help: "Tick update batches dropped because the output channel was full",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "priceengine_tick_duration_seconds",
			Help:    "Wall time spent computing one tick",
			Buckets: prometheus.DefBuckets,
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "priceengine_ws_clients",
			Help: "Currently connected WebSocket subscribers",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_broadcasts_total",
			Help: "Messages fanned out to subscribers",
		}),
		WSDroppedMsgs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priceengine_ws_dropped_messages_total",
			Help: "Messages dropped for slow subscribers",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priceengine_fanout_drops_total",
			Help: "Tick batches dropped per sink (slow consumer)",
		}, []string{"sink"}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "priceengine_redis_write_duration_seconds",
			Help:    "Redis publish pipeline latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "priceengine_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.PriceUpdatesTotal,
		m.ComputeErrorsTotal,
		m.EventTriggersTotal,
		m.PhaseTransitionsTotal,
		m.DroppedBatches,
		m.TickDuration,
		m.WSClients,
		m.BroadcastsTotal,
		m.WSDroppedMsgs,
		m.FanoutDropsTotal,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
	)

	return m
}

// HealthStatus tracks liveness of the engine and its sinks for /healthz.
type HealthStatus struct {
	mu             sync.RWMutex
	StartedAt      time.Time
	LastTickTime   time.Time
	RedisConnected bool
	SQLiteOK       bool
	LastCheckAt    time.Time

	// ClientCount reads the live subscriber count from the hub. Optional.
	ClientCount func() int
}

// NewHealthStatus creates a HealthStatus with the start time set.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency probes. Either dependency
// may be nil when that sink is disabled.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.SetRedisConnected(rdb.Ping(probeCtx).Err() == nil)
				}
				if sqlDB != nil {
					h.SetSQLiteOK(sqlDB.PingContext(probeCtx) == nil)
				}
				h.mu.Lock()
				h.LastCheckAt = time.Now()
				h.mu.Unlock()
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// The tick loop is the only mandatory component: a stale tick means the
	// engine died. Sink failures only degrade.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	tickAge := time.Duration(0)
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime)
	}
	if h.LastTickTime.IsZero() || tickAge > 10*time.Second {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
	}

	clients := 0
	if h.ClientCount != nil {
		clients = h.ClientCount()
	}

	status := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		LastTickTime   string `json:"last_tick_time"`
		TickAge        string `json:"tick_age"`
		RedisConnected bool   `json:"redis_connected"`
		SQLiteOK       bool   `json:"sqlite_ok"`
		WSClients      int    `json:"ws_clients"`
		LastCheckAt    string `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		LastTickTime:   h.LastTickTime.Format(time.RFC3339),
		TickAge:        tickAge.Round(time.Millisecond).String(),
		RedisConnected: h.RedisConnected,
		SQLiteOK:       h.SQLiteOK,
		WSClients:      clients,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the server in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
