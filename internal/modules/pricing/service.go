// README: Pricing service computes per-passenger fare shares.
package pricing

import (
	"math"
)

type Service struct {
	rates Rates
}

func NewService(rates Rates) *Service {
	return &Service{rates: rates}
}

// Fare prices one booking at confirmation time.
//
//	base    = hub-to-drop distance × RatePerKm
//	surge   = 1 + formingGroups/activeCabs   (1 when the fleet count is zero)
//	shared  = base / seatsInGroup            (seats occupied after this booking)
//	detour  = extraKm × DetourRate
//	fare    = round(shared × surge + detour)
//
// The fare is fixed at this moment and never recomputed for passengers who
// joined earlier, even though later joins change the split and the surge.
func (s *Service) Fare(distanceFromHubKm, extraKm float64, seatsInGroup, formingGroups, activeCabs int) Quote {
	base := distanceFromHubKm * s.rates.RatePerKm

	surge := 1.0
	if activeCabs > 0 {
		surge = 1 + float64(formingGroups)/float64(activeCabs)
	}

	shared := base / float64(seatsInGroup)
	detour := extraKm * s.rates.DetourRate
	total := shared*surge + detour

	return Quote{
		Amount:      int64(math.Round(total)),
		BaseFare:    base,
		SharedFare:  shared,
		SurgeFactor: surge,
		DetourCost:  detour,
	}
}
