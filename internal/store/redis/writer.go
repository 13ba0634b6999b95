// Package redis publishes price updates for external collaborators
// (presentation/API layers) over Redis PubSub, alongside a latest-value key
// and a trimmed history stream per character.
package redis

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"price-engine/internal/metrics"
	"price-engine/internal/model"
)

const (
	// History streams hold roughly 3h of 1s updates.
	streamMaxLen     = 10800
	defaultLatestTTL = 30 * time.Minute

	// FirehoseChannel carries every update for single-subscription consumers.
	FirehoseChannel = "pub:price:all"
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes price updates to Redis.
type Writer struct {
	client *goredis.Client
	prom   *metrics.Metrics
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a Writer and pings the server.
func New(cfg WriterConfig, prom *metrics.Metrics) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, prom: prom}, nil
}

// Run consumes tick batches and writes them to Redis.
// Blocks until ctx is cancelled or the channel is closed.
func (w *Writer) Run(ctx context.Context, updates <-chan []model.PriceUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-updates:
			if !ok {
				return
			}
			w.writeBatch(ctx, batch)
		}
	}
}

// writeBatch pipelines SET + XADD + PUBLISH for a whole tick in one
// roundtrip, so subscribers on the Redis side also see ticks atomically.
func (w *Writer) writeBatch(ctx context.Context, batch []model.PriceUpdate) {
	if len(batch) == 0 {
		return
	}
	start := time.Now()

	pipe := w.client.Pipeline()
	for i := range batch {
		u := &batch[i]
		id := strconv.Itoa(u.Character.ID)
		jsonData := string(u.JSON())

		pipe.Set(ctx, "price:latest:"+id, jsonData, defaultLatestTTL)
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: "price:history:" + id,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Publish(ctx, "pub:price:"+id, jsonData)
		pipe.Publish(ctx, FirehoseChannel, jsonData)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] batch pipeline error (%d updates): %v", len(batch), err)
		return
	}
	if w.prom != nil {
		w.prom.RedisWriteDur.Observe(time.Since(start).Seconds())
	}
}
