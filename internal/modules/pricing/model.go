// README: Fare rate definitions, sourced from configuration.
package pricing

// Rates holds the tariff knobs. Defaults (20/km base, 5/km detour) come from
// configuration so a different tariff needs no code change.
type Rates struct {
	RatePerKm  float64
	DetourRate float64
}

// Quote is one passenger's fare with how it was derived.
type Quote struct {
	Amount      int64
	BaseFare    float64
	SharedFare  float64
	SurgeFactor float64
	DetourCost  float64
}
