package engine

import (
	"math"
	"testing"
	"time"

	"price-engine/internal/model"
)

func singleCharRoster() []*model.Character {
	return []*model.Character{{
		ID:             1,
		Name:           "Test Character",
		Crew:           "Test Crew", // no crew bonus
		Bounty:         0,
		BaseGrowthRate: 0.1,
		Volatility:     0,
	}}
}

func TestMarket_DeterministicTwoTickScenario(t *testing.T) {
	phases := []Phase{{Name: "Test Arc", Multiplier: 1.0}}
	m, err := NewMarket(Config{EventProbability: 0, Seed: 42}, singleCharRoster(), phases, nil)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// Tick 1: bootstrap listing.
	updates := m.Step(now)
	if len(updates) != 1 {
		t.Fatalf("tick 1 emitted %d updates, want 1", len(updates))
	}
	p1 := m.Characters()[0].CurrentPrice
	if p1 < 0.40 || p1 > 0.75 {
		t.Fatalf("bootstrap price %f outside [0.40, 0.75]", p1)
	}
	if got := m.Characters()[0].WeeklyChange; got != 100 {
		t.Errorf("tick 1 weekly change = %f, want 100 (listing from zero)", got)
	}

	// Tick 2: pure compounding: volatility 0, multiplier 1.0, no event.
	// The bootstrap price is under the low-price threshold, so the growth
	// rate applies doubled.
	m.Step(now.Add(time.Second))
	p2 := m.Characters()[0].CurrentPrice
	want := p1 * (1 + 2*0.1*1.0)
	if math.Abs(p2-want) > 1e-9 {
		t.Errorf("tick 2 price = %f, want %f", p2, want)
	}
	wantChange := (p2 - p1) / p1 * 100
	if got := m.Characters()[0].WeeklyChange; math.Abs(got-wantChange) > 1e-9 {
		t.Errorf("tick 2 weekly change = %f, want %f", got, wantChange)
	}
}

func TestMarket_FullRosterTickAtomicity(t *testing.T) {
	phases := StoryArcs()
	roster := SeedCharacters()
	m, err := NewMarket(Config{EventProbability: 0, Seed: 7}, roster, phases, nil)
	if err != nil {
		t.Fatal(err)
	}

	updates := m.Step(time.Now().UTC())
	if len(updates) != len(roster) {
		t.Fatalf("emitted %d updates, want one per character (%d)", len(updates), len(roster))
	}

	// The snapshot is rebuilt only after every character is recomputed, so
	// it must agree with the batch exactly.
	snap := m.Snapshot()
	if len(snap.Characters) != len(roster) {
		t.Fatalf("snapshot has %d characters, want %d", len(snap.Characters), len(roster))
	}
	for i, u := range updates {
		if snap.Characters[i].CurrentPrice != u.Character.CurrentPrice {
			t.Errorf("character %d: snapshot price %f != update price %f",
				u.Character.ID, snap.Characters[i].CurrentPrice, u.Character.CurrentPrice)
		}
	}
	if snap.MarketData.CurrentArc != "East Blue Saga" {
		t.Errorf("snapshot arc = %q, want East Blue Saga", snap.MarketData.CurrentArc)
	}
	if snap.MarketData.DaysElapsed != 1 || snap.MarketData.CurrentYear != 1 {
		t.Errorf("snapshot clock = day %d year %d, want day 1 year 1",
			snap.MarketData.DaysElapsed, snap.MarketData.CurrentYear)
	}
}

func TestMarket_PhaseTransitionActivatesEvent(t *testing.T) {
	phases := []Phase{{"First Arc", 1.0}, {"Second Arc", 2.0}}
	m, err := NewMarket(Config{EventProbability: 0, EventDuration: 10, Seed: 1}, singleCharRoster(), phases, nil)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	for i := 0; i < 99; i++ {
		m.Step(now)
		if m.EventActive() {
			t.Fatalf("event active at day %d before any transition", m.Clock().DaysElapsed())
		}
	}

	m.Step(now) // day 100: arc transition
	if m.Clock().Phase().Name != "Second Arc" {
		t.Fatalf("phase = %q, want Second Arc", m.Clock().Phase().Name)
	}
	if !m.EventActive() {
		t.Fatal("arc transition must activate the event trigger")
	}
	if !m.Snapshot().MarketData.MajorEventActive {
		t.Fatal("snapshot must reflect the active event")
	}

	// The celebration window expires after EventDuration ticks.
	for i := 0; i < 10; i++ {
		m.Step(now)
	}
	if m.EventActive() {
		t.Error("event still active after its window elapsed")
	}
}

func TestMarket_ComputeErrorIsLocalToEntity(t *testing.T) {
	phases := []Phase{{Name: "Test Arc", Multiplier: 1.0}}
	roster := []*model.Character{
		{ID: 1, Name: "Degenerate", Crew: "Test Crew", BaseGrowthRate: 0.1, Volatility: 0.3},
		{ID: 2, Name: "Healthy", Crew: "Test Crew", BaseGrowthRate: 0.1, Volatility: 0},
	}
	m, err := NewMarket(Config{EventProbability: 0, Seed: 3}, roster, phases, nil)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	m.Step(now) // bootstrap both
	// Park the first character high enough that an extreme volatility draw
	// overflows to +Inf instead of merely hitting the ceiling.
	roster[0].CurrentPrice = 5000
	p1 := roster[0].CurrentPrice
	p2 := roster[1].CurrentPrice

	m.rng = &stubRand{gauss: math.MaxFloat64, uniform: 1.0}
	updates := m.Step(now)

	if len(updates) != 2 {
		t.Fatalf("tick emitted %d updates, want 2; one failure must not abort the tick", len(updates))
	}
	if roster[0].CurrentPrice != p1 {
		t.Errorf("degenerate character price = %f, want held at %f", roster[0].CurrentPrice, p1)
	}
	want := p2 * 1.2 // doubled growth below threshold
	if math.Abs(roster[1].CurrentPrice-want) > 1e-9 {
		t.Errorf("healthy character price = %f, want %f", roster[1].CurrentPrice, want)
	}
}

func TestNewMarket_EmptyPhasesFailsFast(t *testing.T) {
	if _, err := NewMarket(Config{}, singleCharRoster(), nil, nil); err == nil {
		t.Fatal("want error for empty phase sequence")
	}
}

func TestSeedCharacters(t *testing.T) {
	chars := SeedCharacters()
	if len(chars) != 17 {
		t.Fatalf("seed roster has %d characters, want 17", len(chars))
	}
	for _, c := range chars {
		if c.CurrentPrice != 0 {
			t.Errorf("%s starts at %f, want 0 (not yet listed)", c.Name, c.CurrentPrice)
		}
		if c.BaseGrowthRate <= 0 {
			t.Errorf("%s has non-positive growth rate", c.Name)
		}
		if c.Volatility != 0.3 {
			t.Errorf("%s volatility = %f, want 0.3", c.Name, c.Volatility)
		}
	}
}
