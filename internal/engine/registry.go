package engine

import "price-engine/internal/model"

// SeedCharacters returns the fixed launch roster. All characters start at
// price 0 ("not yet listed"); the roster never grows or shrinks during a
// run.
func SeedCharacters() []*model.Character {
	seed := []struct {
		id     int
		name   string
		crew   string
		bounty int64
		growth float64
	}{
		// Straw Hat Pirates: high growth
		{1, "Monkey D. Luffy", "Straw Hat Pirates", 3_000_000_000, 0.15},
		{2, "Roronoa Zoro", "Straw Hat Pirates", 1_111_000_000, 0.12},
		{3, "Nami", "Straw Hat Pirates", 366_000_000, 0.08},
		{4, "Usopp", "Straw Hat Pirates", 500_000_000, 0.07},
		{5, "Sanji", "Straw Hat Pirates", 1_032_000_000, 0.11},
		{6, "Tony Tony Chopper", "Straw Hat Pirates", 1_000, 0.06},
		{7, "Nico Robin", "Straw Hat Pirates", 930_000_000, 0.10},
		{8, "Franky", "Straw Hat Pirates", 394_000_000, 0.09},
		{9, "Brook", "Straw Hat Pirates", 383_000_000, 0.08},
		{10, "Jinbe", "Straw Hat Pirates", 1_100_000_000, 0.13},

		// Major antagonists: explosive growth
		{11, "Kaido", "Beast Pirates", 4_611_100_000, 0.20},
		{12, "Big Mom", "Big Mom Pirates", 4_388_000_000, 0.18},
		{13, "Blackbeard", "Blackbeard Pirates", 3_996_000_000, 0.25},
		{14, "Doflamingo", "Donquixote Pirates", 340_000_000, 0.14},

		// Marines: steady growth, no bounty
		{15, "Akainu", "Marines", 0, 0.16},
		{16, "Kizaru", "Marines", 0, 0.15},
		{17, "Aokiji", "Marines", 0, 0.14},
	}

	chars := make([]*model.Character, 0, len(seed))
	for _, s := range seed {
		chars = append(chars, &model.Character{
			ID:             s.id,
			Name:           s.name,
			Crew:           s.crew,
			Bounty:         s.bounty,
			BaseGrowthRate: s.growth,
			Volatility:     0.3,
		})
	}
	return chars
}
