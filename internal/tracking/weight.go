package tracking

import "bevops-backend/internal/models"

// Weights in lbs used when a container has none recorded
const (
	KegWeight         = 160.0 // full 15.5 gal keg
	CaseWeight        = 30.0
	BottleWeight      = 2.5
	CanWeight         = 0.8
	DefaultUnitWeight = 50.0
	EmptyPalletWeight = 500.0
)

// Weight returns the recorded weight, or a per-type default
func Weight(c models.Container) float64 {
	if c.Weight != nil && *c.Weight > 0 {
		return *c.Weight
	}
	switch c.Type {
	case models.ContainerKeg:
		return KegWeight
	case models.ContainerCase:
		return CaseWeight
	case models.ContainerBottle:
		return BottleWeight
	case models.ContainerCan:
		return CanWeight
	case models.ContainerPallet:
		if len(c.ChildIDs) > 0 {
			return float64(len(c.ChildIDs)) * DefaultUnitWeight
		}
		return EmptyPalletWeight
	}
	return DefaultUnitWeight
}
