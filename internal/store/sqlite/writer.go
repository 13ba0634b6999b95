// Package sqlite records tick-by-tick price history off the hot path.
// It is the persistence collaborator of the engine: a plain sink on the
// update fan-out, never consulted by the tick loop.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"price-engine/internal/metrics"
	"price-engine/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 500 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // e.g. "data/prices.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db   *sql.DB
	prom *metrics.Metrics
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// Close closes the underlying database.
func (w *Writer) Close() error { return w.db.Close() }

// New opens the database in WAL mode and ensures the schema exists.
func New(cfg WriterConfig, prom *metrics.Metrics) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, prom: prom}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			character_id INTEGER NOT NULL,
			ts           TEXT    NOT NULL,
			price        REAL    NOT NULL,
			change_pct   REAL    NOT NULL,
			market_cap   REAL    NOT NULL,
			story_arc    TEXT    NOT NULL,
			PRIMARY KEY (character_id, ts)
		);
	`)
	return err
}

// Run consumes tick batches and inserts them in batched transactions.
// Flushes every batchSize rows OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or the channel is closed.
func (w *Writer) Run(ctx context.Context, updates <-chan []model.PriceUpdate) {
	pending := make([]model.PriceUpdate, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(pending); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else if w.prom != nil {
			w.prom.SQLiteCommitDur.Observe(time.Since(start).Seconds())
		}
		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case batch, ok := <-updates:
			if !ok {
				flush()
				return
			}
			pending = append(pending, batch...)
			if len(pending) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch writes a batch of updates in a single transaction.
func (w *Writer) insertBatch(updates []model.PriceUpdate) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_history (character_id, ts, price, change_pct, market_cap, story_arc)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range updates {
		c := &updates[i].Character
		_, err := stmt.Exec(c.ID, updates[i].Timestamp, c.CurrentPrice, c.WeeklyChange, c.MarketCap, c.StoryArc)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
