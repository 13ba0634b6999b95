package engine

import (
	"math"

	"price-engine/internal/model"
)

const (
	// MinPrice is the post-bootstrap price floor.
	MinPrice = 0.01
	// MaxPrice caps runaway compounding.
	MaxPrice = 10000.0

	// Bootstrap listing range for a never-priced character.
	bootstrapLow  = 0.40
	bootstrapHigh = 0.75

	// Below this price the base growth rate is doubled; emerging
	// characters grow faster in relative terms.
	lowPriceThreshold = 10.0

	// Logarithmic bounty influence coefficient.
	bountyScale = 0.02

	// Global multiplier while a major event is active.
	eventBoost = 1.5
)

// crewBonus returns the fixed popularity bonus for favored crews.
func crewBonus(crew string) float64 {
	switch crew {
	case "Straw Hat Pirates":
		return 1.2
	case "Beast Pirates", "Big Mom Pirates":
		return 1.15
	}
	return 1.0
}

// NextPrice computes a character's next price for one tick.
//
// A never-priced character lists at a uniform draw from the bootstrap
// range, untouched by any multiplier. Otherwise the current price is
// compounded by growth, volatility, bounty, crew, and event factors, then
// clamped to [MinPrice, MaxPrice].
//
// Returns ok=false when the arithmetic degenerates to NaN/Inf; the caller
// must hold the previous price for this tick.
func NextPrice(c *model.Character, phase Phase, eventActive bool, rng Rand) (price float64, ok bool) {
	if !c.Listed() {
		return bootstrapLow + rng.Float64()*(bootstrapHigh-bootstrapLow), true
	}

	growth := c.BaseGrowthRate
	if c.CurrentPrice < lowPriceThreshold {
		growth *= 2.0
	}

	storyMult := phase.Multiplier * ArcBonus(phase.Name, c.Name)
	growthFactor := 1.0 + growth*storyMult

	volatilityFactor := 1.0 + rng.NormFloat64()*c.Volatility

	bountyFactor := 1.0
	if c.Bounty > 0 {
		bountyFactor = 1.0 + math.Log10(float64(c.Bounty)+1)*bountyScale
	}

	eventFactor := 1.0
	if eventActive {
		eventFactor = eventBoost
	}

	next := c.CurrentPrice * growthFactor * volatilityFactor * bountyFactor * crewBonus(c.Crew) * eventFactor
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return c.CurrentPrice, false
	}

	if next < MinPrice {
		next = MinPrice
	}
	if next > MaxPrice {
		next = MaxPrice
	}
	return next, true
}

// ChangePercent computes the signed percent change between two prices.
// A listing from zero counts as a flat +100%; zero-to-zero is 0 (cannot
// happen after bootstrap, but the formula must never divide by zero).
func ChangePercent(old, new float64) float64 {
	if old > 0 {
		return (new - old) / old * 100.0
	}
	if new > 0 {
		return 100.0
	}
	return 0.0
}
