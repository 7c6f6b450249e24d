// README: Cab roster entity. Capacity is fixed at creation; only the active
// flag changes afterwards.
package fleet

import (
	"time"

	"hubpool/internal/types"
)

type Cab struct {
	ID              types.ID  `json:"id"`
	SeatCapacity    int       `json:"seat_capacity"`
	LuggageCapacity int       `json:"luggage_capacity"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
