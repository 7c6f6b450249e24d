// README: Common value types shared across modules.
package types

// ID identifies a cab, group, or request.
type ID string

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Direction of travel relative to the hub.
type Direction string

const (
	DirectionToHub   Direction = "TO_HUB"
	DirectionFromHub Direction = "FROM_HUB"
)

func (d Direction) Valid() bool {
	return d == DirectionToHub || d == DirectionFromHub
}
