package engine

import (
	"math"
	"math/rand"
	"testing"

	"price-engine/internal/model"
)

// stubRand returns fixed values, letting tests force volatility draws and
// bootstrap listings.
type stubRand struct {
	uniform float64
	gauss   float64
	intn    int
}

func (s *stubRand) Float64() float64     { return s.uniform }
func (s *stubRand) NormFloat64() float64 { return s.gauss }
func (s *stubRand) Intn(n int) int       { return s.intn % n }

func TestNextPrice_BootstrapRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	phase := Phase{Name: "Final Saga", Multiplier: 5.0}

	for i := 0; i < 1000; i++ {
		c := &model.Character{ID: 1, Name: "Test", CurrentPrice: 0}
		// Even with the hottest arc and an active event, the listing price
		// must stay in the bootstrap range.
		price, ok := NextPrice(c, phase, true, rng)
		if !ok {
			t.Fatal("bootstrap computation reported failure")
		}
		if price < 0.40 || price > 0.75 {
			t.Fatalf("bootstrap price %f outside [0.40, 0.75]", price)
		}
	}
}

func TestNextPrice_ClampCeiling(t *testing.T) {
	c := &model.Character{Name: "Test", CurrentPrice: 100, BaseGrowthRate: 0.1, Volatility: 0.3}
	rng := &stubRand{gauss: 1e6} // absurd upward swing

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, false, rng)
	if !ok {
		t.Fatal("expected computation to succeed")
	}
	if price != MaxPrice {
		t.Errorf("price = %f, want ceiling %f", price, MaxPrice)
	}
}

func TestNextPrice_ClampFloor(t *testing.T) {
	c := &model.Character{Name: "Test", CurrentPrice: 100, BaseGrowthRate: 0.1, Volatility: 0.3}
	rng := &stubRand{gauss: -1e6} // swing so negative the raw result is negative

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, false, rng)
	if !ok {
		t.Fatal("expected computation to succeed")
	}
	if price != MinPrice {
		t.Errorf("price = %f, want floor %f", price, MinPrice)
	}
}

func TestNextPrice_DegenerateArithmeticHoldsPrice(t *testing.T) {
	c := &model.Character{Name: "Test", CurrentPrice: 5000, BaseGrowthRate: 0.1, Volatility: 0.3}
	rng := &stubRand{gauss: math.MaxFloat64} // overflows to +Inf before the clamp

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, false, rng)
	if ok {
		t.Fatal("expected computation failure for Inf result")
	}
	if price != 5000 {
		t.Errorf("price = %f, want previous price 5000", price)
	}
}

func TestNextPrice_CompoundingAboveThreshold(t *testing.T) {
	// Above the low-price threshold the base growth rate applies as-is.
	c := &model.Character{Name: "Test", Crew: "Marines", CurrentPrice: 100, BaseGrowthRate: 0.1}
	rng := &stubRand{gauss: 0}

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, false, rng)
	if !ok {
		t.Fatal("expected computation to succeed")
	}
	if want := 100 * 1.1; math.Abs(price-want) > 1e-9 {
		t.Errorf("price = %f, want %f", price, want)
	}
}

func TestNextPrice_GrowthDoublesBelowThreshold(t *testing.T) {
	c := &model.Character{Name: "Test", Crew: "Marines", CurrentPrice: 5, BaseGrowthRate: 0.1}
	rng := &stubRand{gauss: 0}

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, false, rng)
	if !ok {
		t.Fatal("expected computation to succeed")
	}
	if want := 5 * 1.2; math.Abs(price-want) > 1e-9 {
		t.Errorf("price = %f, want %f (doubled growth under %f)", price, want, lowPriceThreshold)
	}
}

func TestNextPrice_BountyAndEventFactors(t *testing.T) {
	// Growth 0 and volatility 0 isolate the bounty and event factors.
	c := &model.Character{Name: "Test", Crew: "Marines", CurrentPrice: 100, Bounty: 999}
	rng := &stubRand{gauss: 0}

	price, ok := NextPrice(c, Phase{Name: "East Blue Saga", Multiplier: 1.0}, true, rng)
	if !ok {
		t.Fatal("expected computation to succeed")
	}
	bountyFactor := 1.0 + math.Log10(1000)*0.02
	if want := 100 * bountyFactor * 1.5; math.Abs(price-want) > 1e-9 {
		t.Errorf("price = %f, want %f", price, want)
	}
}

func TestCrewBonus(t *testing.T) {
	tests := []struct {
		crew string
		want float64
	}{
		{"Straw Hat Pirates", 1.2},
		{"Beast Pirates", 1.15},
		{"Big Mom Pirates", 1.15},
		{"Marines", 1.0},
		{"Blackbeard Pirates", 1.0},
	}
	for _, tt := range tests {
		if got := crewBonus(tt.crew); got != tt.want {
			t.Errorf("crewBonus(%q) = %f, want %f", tt.crew, got, tt.want)
		}
	}
}

func TestArcBonus(t *testing.T) {
	tests := []struct {
		arc, character string
		want           float64
	}{
		{"Summit War Saga", "Monkey D. Luffy", 2.0},
		{"Wano Country Saga", "Monkey D. Luffy", 3.0},
		{"Wano Country Saga", "Kaido", 2.5},
		{"Summit War Saga", "Kaido", 1.0},
		{"East Blue Saga", "Monkey D. Luffy", 1.0},
	}
	for _, tt := range tests {
		if got := ArcBonus(tt.arc, tt.character); got != tt.want {
			t.Errorf("ArcBonus(%q, %q) = %f, want %f", tt.arc, tt.character, got, tt.want)
		}
	}
}

func TestChangePercent(t *testing.T) {
	tests := []struct {
		name     string
		old, new float64
		want     float64
	}{
		{"up_10pct", 100, 110, 10},
		{"down_50pct", 100, 50, -50},
		{"listing_from_zero", 0, 0.5, 100},
		{"zero_to_zero", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChangePercent(tt.old, tt.new); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ChangePercent(%f, %f) = %f, want %f", tt.old, tt.new, got, tt.want)
			}
		})
	}
}
