package engine

// Rand is the source of randomness used by the engine. Satisfied by
// *math/rand.Rand; tests substitute fixed sequences.
type Rand interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// flavorEvents are the headlines attached to a trigger activation.
var flavorEvents = []string{
	"DEVIL FRUIT AWAKENING!",
	"EPIC BATTLE BEGINS!",
	"NEW YONKO REVEALED!",
	"BOUNTY UPDATE!",
	"MAJOR ARC CLIMAX!",
	"POWER-UP UNLOCKED!",
}

// Trigger is the probabilistic market-wide amplifier. Once activated at
// tick T it stays active for exactly `duration` ticks: the expiry is fixed
// at activation time, so deactivation never depends on anyone clearing a
// flag, and re-activating while active never extends the window.
type Trigger struct {
	rng         Rand
	probability float64
	duration    int64

	active     bool
	expiryTick int64
}

// NewTrigger creates a Trigger that fires with the given per-tick
// probability and stays active for duration ticks.
func NewTrigger(rng Rand, probability float64, duration int64) *Trigger {
	return &Trigger{rng: rng, probability: probability, duration: duration}
}

// MaybeFire rolls the per-tick activation chance. Returns the flavor
// headline and true when a new activation happened this tick.
func (t *Trigger) MaybeFire(tick int64) (string, bool) {
	if t.rng.Float64() >= t.probability {
		return "", false
	}
	if !t.Activate(tick) {
		return "", false
	}
	return flavorEvents[t.rng.Intn(len(flavorEvents))], true
}

// Activate starts an amplification window at the given tick. A no-op while
// a window is already open; returns whether a new window was opened.
func (t *Trigger) Activate(tick int64) bool {
	if t.Active(tick) {
		return false
	}
	t.active = true
	t.expiryTick = tick + t.duration
	return true
}

// Active reports whether the amplifier applies at the given tick.
// Active for ticks T..T+duration-1, inactive from T+duration onward.
func (t *Trigger) Active(tick int64) bool {
	return t.active && tick < t.expiryTick
}
