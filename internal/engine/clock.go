package engine

import "errors"

const (
	// DaysPerYear converts elapsed simulated days into story years.
	DaysPerYear = 365
	// PhaseAdvanceDays is the arc-advancement cadence in simulated days.
	PhaseAdvanceDays = 100
)

// ErrNoPhases is returned when a Clock is constructed with an empty arc
// sequence. The market cannot run without at least one arc.
var ErrNoPhases = errors.New("engine: phase sequence is empty")

// Clock tracks simulated time and drives the story-arc state machine.
// One tick equals one simulated day. The arc index only ever moves forward
// and holds at the last arc once reached.
type Clock struct {
	phases         []Phase
	tick           int64
	daysElapsed    int
	year           int
	phaseIdx       int
	phaseStartTick int64
}

// ClockEvents reports the side effects of a single Advance call.
type ClockEvents struct {
	NewYear      bool
	Year         int
	PhaseChanged bool
	Phase        Phase
}

// NewClock creates a Clock over the given arc sequence.
func NewClock(phases []Phase) (*Clock, error) {
	if len(phases) == 0 {
		return nil, ErrNoPhases
	}
	return &Clock{phases: phases, year: 1}, nil
}

// Advance moves the clock one tick forward and evaluates year and arc
// boundaries. Year and arc notifications fire exactly once per boundary
// because daysElapsed passes each value exactly once.
func (c *Clock) Advance() ClockEvents {
	c.tick++
	c.daysElapsed++

	var ev ClockEvents
	if c.daysElapsed%DaysPerYear == 0 {
		c.year++
		ev.NewYear = true
		ev.Year = c.year
	}

	if c.daysElapsed%PhaseAdvanceDays == 0 && c.phaseIdx < len(c.phases)-1 {
		c.phaseIdx++
		c.phaseStartTick = c.tick
		ev.PhaseChanged = true
		ev.Phase = c.phases[c.phaseIdx]
	}
	return ev
}

// Tick returns the current tick count.
func (c *Clock) Tick() int64 { return c.tick }

// DaysElapsed returns the simulated days since start.
func (c *Clock) DaysElapsed() int { return c.daysElapsed }

// Year returns the current story year (starts at 1).
func (c *Clock) Year() int { return c.year }

// Phase returns the active arc.
func (c *Clock) Phase() Phase { return c.phases[c.phaseIdx] }

// PhaseIndex returns the active arc index.
func (c *Clock) PhaseIndex() int { return c.phaseIdx }
