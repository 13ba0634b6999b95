package model

import "time"

// Character represents a single tradeable character instrument.
// Static attributes come from the seed roster; price state is mutated
// every tick by the engine and nowhere else.
type Character struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Crew           string  `json:"crew"`
	Bounty         int64   `json:"bounty"`           // berries; popularity proxy
	BaseGrowthRate float64 `json:"base_growth_rate"` // per-tick compounding rate
	Volatility     float64 `json:"volatility"`       // gaussian swing coefficient

	CurrentPrice float64   `json:"current_price"` // 0 until first tick ("not yet listed")
	WeeklyChange float64   `json:"weekly_change"` // signed percent
	IsTrending   bool      `json:"is_trending"`
	LastUpdate   time.Time `json:"last_update"` // UTC
}

// Listed reports whether the character has received its bootstrap price.
func (c *Character) Listed() bool {
	return c.CurrentPrice > 0
}
