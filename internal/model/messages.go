package model

import (
	"encoding/json"
	"math"
	"time"
)

// MarketCapMultiplier converts a unit price into a displayed market cap.
const MarketCapMultiplier = 1_000_000

// CharacterQuote is the wire representation of one character's price state,
// as embedded in both the snapshot and the per-tick update messages.
type CharacterQuote struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Crew         string  `json:"crew"`
	CurrentPrice float64 `json:"current_price"` // 2 decimals
	WeeklyChange float64 `json:"weekly_change"` // 2 decimals, percent
	MarketCap    float64 `json:"market_cap"`    // 2 decimals
}

// UpdatedCharacter is a CharacterQuote plus the story arc the update
// happened in. Only price updates carry the arc; snapshots report it once
// in MarketState instead.
type UpdatedCharacter struct {
	CharacterQuote
	StoryArc string `json:"story_arc"`
}

// PriceUpdate is the incremental message broadcast after every tick,
// one per character.
type PriceUpdate struct {
	Type      string           `json:"type"` // always "price_update"
	Character UpdatedCharacter `json:"character"`
	Timestamp string           `json:"timestamp"` // ISO-8601
}

// MarketState is the clock portion of the snapshot message.
type MarketState struct {
	CurrentArc       string `json:"current_arc"`
	CurrentYear      int    `json:"current_year"`
	DaysElapsed      int    `json:"days_elapsed"`
	MajorEventActive bool   `json:"major_event_active"`
}

// MarketSnapshot is the full-market message sent to a subscriber before any
// incremental updates, so late joiners never miss baseline state.
type MarketSnapshot struct {
	Type       string           `json:"type"` // always "market_data"
	Characters []CharacterQuote `json:"characters"`
	MarketData MarketState      `json:"market_data"`
}

// NewPriceUpdate builds the wire message for one character at the given
// instant, rounding money fields to 2 decimals.
func NewPriceUpdate(c *Character, arc string, ts time.Time) PriceUpdate {
	return PriceUpdate{
		Type: "price_update",
		Character: UpdatedCharacter{
			CharacterQuote: c.Quote(),
			StoryArc:       arc,
		},
		Timestamp: ts.Format(time.RFC3339Nano),
	}
}

// Quote returns the rounded wire view of the character's current state.
func (c *Character) Quote() CharacterQuote {
	return CharacterQuote{
		ID:           c.ID,
		Name:         c.Name,
		Crew:         c.Crew,
		CurrentPrice: Round2(c.CurrentPrice),
		WeeklyChange: Round2(c.WeeklyChange),
		MarketCap:    Round2(c.CurrentPrice * MarketCapMultiplier),
	}
}

// Round2 rounds to 2 decimal places for display/wire fields.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// JSON returns the JSON-encoded update (ignoring errors for hot-path usage).
func (u *PriceUpdate) JSON() []byte {
	b, _ := json.Marshal(u)
	return b
}

// JSON returns the JSON-encoded snapshot.
func (s *MarketSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
