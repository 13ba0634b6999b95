// Package engine implements the simulated character market: a fixed roster
// of characters whose prices compound every tick under story-arc
// multipliers, gaussian volatility, and probabilistic major events.
//
// All market state lives in a single Market aggregate and is mutated only
// by the tick loop; everything outside the loop sees it through immutable
// per-tick update batches or the atomic snapshot.
package engine

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"price-engine/internal/metrics"
	"price-engine/internal/model"
)

// Config holds the tunables of the simulation.
type Config struct {
	// TickInterval is the wall-clock pace of the simulation.
	// Defaults to 1 second if zero.
	TickInterval time.Duration

	// EventProbability is the per-tick chance of a major event activating.
	// Zero disables the random trigger entirely (arc transitions still
	// activate it).
	EventProbability float64

	// EventDuration is how many ticks a major event stays active.
	// Defaults to 10 if zero.
	EventDuration int64

	// SummaryEvery logs a market summary every N ticks. 0 disables.
	SummaryEvery int64

	// Seed seeds the engine RNG. 0 means time-based.
	Seed int64
}

func (c *Config) defaults() {
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
	if c.EventDuration == 0 {
		c.EventDuration = 10
	}
}

// Market owns the whole simulation: roster, clock, event trigger, and RNG.
// Constructed once at startup, driven by Run, mutated only on its tick
// goroutine.
type Market struct {
	cfg        Config
	characters []*model.Character
	clock      *Clock
	trigger    *Trigger
	rng        Rand
	prom       *metrics.Metrics

	// OnTick is called after each completed tick with its timestamp.
	// Used for health reporting.
	OnTick func(time.Time)

	snapMu   sync.RWMutex
	snapshot model.MarketSnapshot
}

// NewMarket builds a Market over the given roster and arc sequence.
// An empty arc sequence is a fatal configuration error.
func NewMarket(cfg Config, characters []*model.Character, phases []Phase, prom *metrics.Metrics) (*Market, error) {
	cfg.defaults()

	clock, err := NewClock(phases)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m := &Market{
		cfg:        cfg,
		characters: characters,
		clock:      clock,
		trigger:    NewTrigger(rng, cfg.EventProbability, cfg.EventDuration),
		rng:        rng,
		prom:       prom,
	}
	m.refreshSnapshot()

	log.Printf("[engine] market initialized: %d characters, %d arcs, tick=%s",
		len(characters), len(phases), cfg.TickInterval)
	return m, nil
}

// Characters returns the live, mutable roster. Callers outside the tick
// loop must not mutate it.
func (m *Market) Characters() []*model.Character { return m.characters }

// Clock returns the market clock (read-only outside the tick loop).
func (m *Market) Clock() *Clock { return m.clock }

// EventActive reports whether a major event applies at the current tick.
func (m *Market) EventActive() bool { return m.trigger.Active(m.clock.Tick()) }

// Snapshot returns the full-market snapshot as of the last completed tick.
// Safe for concurrent use; this is what new subscribers receive first.
func (m *Market) Snapshot() model.MarketSnapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snapshot
}

// Run drives the tick loop until ctx is cancelled. Each completed tick's
// update batch is pushed to out as a unit, so downstream consumers never
// observe a partially-updated tick.
func (m *Market) Run(ctx context.Context, out chan<- []model.PriceUpdate) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	log.Printf("[engine] tick loop started (every %s)", m.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[engine] tick loop stopped")
			return
		case <-ticker.C:
			start := time.Now()
			updates := m.Step(start.UTC())
			if m.prom != nil {
				m.prom.TickDuration.Observe(time.Since(start).Seconds())
			}
			select {
			case out <- updates:
			default:
				log.Println("[engine] update channel full, dropping tick batch")
				if m.prom != nil {
					m.prom.DroppedBatches.Inc()
				}
			}
			if m.OnTick != nil {
				m.OnTick(start)
			}
		}
	}
}

// Step advances the simulation by exactly one tick: clock and arc
// progression first, then every character's price, then the event roll.
// Returns the complete batch of updates for this tick.
func (m *Market) Step(now time.Time) []model.PriceUpdate {
	ev := m.clock.Advance()
	tick := m.clock.Tick()

	if ev.NewYear {
		log.Printf("[engine] new year: now in year %d", ev.Year)
	}
	if ev.PhaseChanged {
		// Arc transitions are themselves major market events.
		log.Printf("[engine] story progression: now in %s (multiplier %.1fx)",
			ev.Phase.Name, ev.Phase.Multiplier)
		m.trigger.Activate(tick)
		if m.prom != nil {
			m.prom.PhaseTransitionsTotal.Inc()
		}
	}

	phase := m.clock.Phase()
	eventActive := m.trigger.Active(tick)

	updates := make([]model.PriceUpdate, 0, len(m.characters))
	for _, c := range m.characters {
		old := c.CurrentPrice
		next, ok := NextPrice(c, phase, eventActive, m.rng)
		if !ok {
			// Degenerate arithmetic is local to this character: hold the
			// previous price and keep the tick going.
			log.Printf("[engine] price computation failed for %s, holding %.2f", c.Name, old)
			if m.prom != nil {
				m.prom.ComputeErrorsTotal.Inc()
			}
			next = old
		}
		c.CurrentPrice = next
		c.WeeklyChange = ChangePercent(old, next)
		c.IsTrending = c.WeeklyChange >= trendingThreshold || c.WeeklyChange <= -trendingThreshold
		c.LastUpdate = now

		updates = append(updates, model.NewPriceUpdate(c, phase.Name, now))
	}

	if name, fired := m.trigger.MaybeFire(tick); fired {
		log.Printf("[engine] MAJOR EVENT: %s: prices will surge for %d ticks", name, m.cfg.EventDuration)
		if m.prom != nil {
			m.prom.EventTriggersTotal.Inc()
		}
	}

	m.refreshSnapshot()

	if m.prom != nil {
		m.prom.TicksTotal.Inc()
		m.prom.PriceUpdatesTotal.Add(float64(len(updates)))
	}
	if m.cfg.SummaryEvery > 0 && tick%m.cfg.SummaryEvery == 0 {
		m.logSummary()
	}
	return updates
}

// trendingThreshold marks a character trending when a single tick moves it
// by at least this percent either way.
const trendingThreshold = 20.0

// refreshSnapshot rebuilds the atomic full-market snapshot after a tick.
func (m *Market) refreshSnapshot() {
	quotes := make([]model.CharacterQuote, len(m.characters))
	for i, c := range m.characters {
		quotes[i] = c.Quote()
	}
	snap := model.MarketSnapshot{
		Type:       "market_data",
		Characters: quotes,
		MarketData: model.MarketState{
			CurrentArc:       m.clock.Phase().Name,
			CurrentYear:      m.clock.Year(),
			DaysElapsed:      m.clock.DaysElapsed(),
			MajorEventActive: m.trigger.Active(m.clock.Tick()),
		},
	}

	m.snapMu.Lock()
	m.snapshot = snap
	m.snapMu.Unlock()
}

// logSummary prints the top of the market and the total cap, in arrival
// order of price.
func (m *Market) logSummary() {
	sorted := make([]*model.Character, len(m.characters))
	copy(sorted, m.characters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CurrentPrice > sorted[j].CurrentPrice
	})

	top := sorted
	if len(top) > 5 {
		top = top[:5]
	}
	totalCap := 0.0
	for _, c := range m.characters {
		totalCap += c.CurrentPrice * model.MarketCapMultiplier
	}

	log.Printf("[engine] summary: day=%d year=%d arc=%q event=%v totalCap=%.2f",
		m.clock.DaysElapsed(), m.clock.Year(), m.clock.Phase().Name, m.EventActive(), totalCap)
	for _, c := range top {
		log.Printf("[engine]   %s (%s): %.2f (%+.1f%%)", c.Name, c.Crew, c.CurrentPrice, c.WeeklyChange)
	}
}
