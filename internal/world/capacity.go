package world

// RemainingCapacity is the celestial's max size minus the sizes of its constructions
// and of the construction processes still pending on it.
func RemainingCapacity(c Celestial, constructions []Construction, reserved int) int {
	used := reserved
	for _, con := range constructions {
		if con.CelestialID == c.ID {
			used += con.Size
		}
	}
	return c.MaxSize - used
}

// HasConstruction reports whether any construction of the given base id is present.
func HasConstruction(constructions []Construction, baseID string) bool {
	for _, con := range constructions {
		if con.BaseID == baseID {
			return true
		}
	}
	return false
}
