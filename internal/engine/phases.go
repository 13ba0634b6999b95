package engine

// Phase is one story arc in the progression sequence: a name plus the
// price multiplier applied while the market is in that arc.
type Phase struct {
	Name       string
	Multiplier float64
}

// StoryArcs returns the default arc sequence in progression order.
// Multipliers ramp up toward the finale.
func StoryArcs() []Phase {
	return []Phase{
		{"East Blue Saga", 1.0},
		{"Alabasta Saga", 1.5},
		{"Sky Island Saga", 1.3},
		{"Water 7 Saga", 2.0},
		{"Thriller Bark Saga", 1.4},
		{"Summit War Saga", 3.0},
		{"Fish-Man Island Saga", 1.6},
		{"Dressrosa Saga", 2.2},
		{"Zou Saga", 1.8},
		{"Whole Cake Island Saga", 2.5},
		{"Wano Country Saga", 4.0},
		{"Final Saga", 5.0},
	}
}

type arcBonusKey struct {
	Arc       string
	Character string
}

// arcBonuses is the explicit character-per-arc bonus table. These are
// enumerated narrative moments, not a general rule; new entries are added
// here, never inferred.
var arcBonuses = map[arcBonusKey]float64{
	{"Summit War Saga", "Monkey D. Luffy"}:    2.0,
	{"Wano Country Saga", "Monkey D. Luffy"}:  3.0,
	{"Wano Country Saga", "Kaido"}:            2.5,
}

// ArcBonus returns the extra multiplier for a character in a given arc,
// or 1.0 when no special moment applies.
func ArcBonus(arc, character string) float64 {
	if b, ok := arcBonuses[arcBonusKey{arc, character}]; ok {
		return b
	}
	return 1.0
}
