package tracking

import (
	"errors"
	"iter"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// ErrStaleOrUnauthorizedSample is returned for samples of an order that is not
// in transit or that come from a driver other than the assigned one. Callers
// drop the sample and count it; it is never fatal.
var ErrStaleOrUnauthorizedSample = errors.New("stale or unauthorized location sample")

// Sample is one append-only entry of a delivery's trail.
type Sample struct {
	OrderID    kernel.UUID     `json:"order_id"`
	DriverID   kernel.UUID     `json:"driver_id"`
	Location   kernel.Location `json:"location"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func NewSample(orderID, driverID kernel.UUID, location kernel.Location, recordedAt time.Time) (Sample, error) {
	if err := errors.Join(orderID.Validate(), driverID.Validate(), location.Validate()); err != nil {
		return Sample{}, err
	}
	if recordedAt.IsZero() {
		return Sample{}, errs.NewValueIsRequiredError("recorded_at")
	}
	return Sample{
		OrderID:    orderID,
		DriverID:   driverID,
		Location:   location,
		RecordedAt: recordedAt.UTC(),
	}, nil
}

// Position is the mirrored current location of an order.
type Position struct {
	OrderID    kernel.UUID     `json:"order_id"`
	Location   kernel.Location `json:"location"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Trail is a finite, time-ordered sequence of samples. Ranging over All more
// than once yields the same samples each time.
type Trail struct {
	samples []Sample
}

// NewTrail wraps samples already ordered by RecordedAt.
func NewTrail(samples []Sample) Trail {
	return Trail{samples: samples}
}

func (t Trail) All() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		for _, s := range t.samples {
			if !yield(s) {
				return
			}
		}
	}
}

func (t Trail) Len() int {
	return len(t.samples)
}

// Distance sums the great-circle distance between consecutive samples.
func (t Trail) Distance() float64 {
	var total float64
	for i := 1; i < len(t.samples); i++ {
		d, err := t.samples[i-1].Location.DistanceMeters(t.samples[i].Location)
		if err == nil {
			total += d
		}
	}
	return total
}
