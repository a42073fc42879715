package kernel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
	EarthRadiusMeters = 6371008.8
)

// ErrLocationIsNotConstructed is returned when a zero-value Location is used.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
	"location must be created via NewLocation")

// Location is an immutable WGS84 coordinate.
type Location struct { //nolint:recvcheck //using for validation
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewLocation validates latitude and longitude ranges.
func NewLocation(lat, lng float64) (Location, error) {
	loc := Location{guard: guard.NewConstructorGuard()}
	if err := errors.Join(loc.setLat(lat), loc.setLng(lng)); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// MustNewLocation panics on invalid input. Intended for tests and constants.
func MustNewLocation(lat, lng float64) Location {
	loc, err := NewLocation(lat, lng)
	if err != nil {
		panic(err)
	}
	return loc
}

func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

func (l Location) IsZero() bool {
	return l.Validate() != nil
}

func (l Location) Lat() float64 {
	return l.lat
}

func (l Location) Lng() float64 {
	return l.lng
}

func (l Location) String() string {
	return fmt.Sprintf("Location(%.6f,%.6f)", l.lat, l.lng)
}

func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}
	return l == other, nil
}

// DistanceMeters returns the great-circle distance between two locations
// using the Haversine formula.
func (l Location) DistanceMeters(other Location) (float64, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return 0, err
	}
	return haversine(l.lat, l.lng, other.lat, other.lng), nil
}

type locationJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	if l.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(locationJSON{Lat: l.lat, Lng: l.lng})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Location{}
		return nil
	}
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	loc, err := NewLocation(raw.Lat, raw.Lng)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

func (l *Location) setLat(lat float64) error {
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return errs.NewValueIsOutOfRangeError("lat", lat, MinLatitude, MaxLatitude)
	}
	l.lat = lat
	return nil
}

func (l *Location) setLng(lng float64) error {
	if math.IsNaN(lng) || lng < MinLongitude || lng > MaxLongitude {
		return errs.NewValueIsOutOfRangeError("lng", lng, MinLongitude, MaxLongitude)
	}
	l.lng = lng
	return nil
}
