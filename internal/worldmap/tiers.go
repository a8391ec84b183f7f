package worldmap

// SizeForPopulation quantizes a city's member count into its size tier
func SizeForPopulation(population int) SizeTier {
	switch {
	case population >= 50:
		return TierMetropolis
	case population >= 20:
		return TierCity
	case population >= 10:
		return TierTown
	case population >= 3:
		return TierVillage
	default:
		return TierHomestead
	}
}

// RoadForStrength quantizes an edge strength into its road tier
func RoadForStrength(strength int) RoadTier {
	switch {
	case strength >= 11:
		return RoadHighway
	case strength >= 6:
		return RoadMain
	case strength >= 3:
		return RoadCountry
	default:
		return RoadTrail
	}
}
