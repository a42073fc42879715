package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// MatchingPolicy holds the tunable parameters of driver selection.
type MatchingPolicy struct {
	ProximityWeight     float64
	RatingWeight        float64
	LoadWeight          float64
	FreshnessWindow     time.Duration
	MaxActiveDeliveries int
	SearchRadiusMeters  float64
}

// DefaultMatchingPolicy favours proximity, then rating, and lightly penalizes load.
func DefaultMatchingPolicy() MatchingPolicy {
	return MatchingPolicy{
		ProximityWeight:     0.6,
		RatingWeight:        0.3,
		LoadWeight:          0.1,
		FreshnessWindow:     300 * time.Second,
		MaxActiveDeliveries: 2,
		SearchRadiusMeters:  5000,
	}
}

func (p MatchingPolicy) Validate() error {
	var errList []error
	for name, w := range map[string]float64{
		"proximity_weight": p.ProximityWeight,
		"rating_weight":    p.RatingWeight,
		"load_weight":      p.LoadWeight,
	} {
		if w < 0 {
			errList = append(errList, errs.NewValueIsOutOfRangeError(name, w, 0, "inf"))
		}
	}
	if p.FreshnessWindow <= 0 {
		errList = append(errList, errs.NewValueIsRequiredError("freshness_window"))
	}
	if p.MaxActiveDeliveries < 1 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("max_active_deliveries", p.MaxActiveDeliveries, 1, "inf"))
	}
	if p.SearchRadiusMeters <= 0 {
		errList = append(errList, errs.NewValueIsRequiredError("search_radius_meters"))
	}
	return errors.Join(errList...)
}

// ScoredCandidate is an eligible driver with its distance and score.
type ScoredCandidate struct {
	driver.Snapshot
	DistanceMeters float64
	Score          float64
}

// DriverMatcher selects drivers for an order.
//
// Eligible drivers are available, have no pending offer, sent a heartbeat
// within the freshness window, are below the concurrency cap, lie within the
// search radius and are not excluded for the order. They are ranked by
//
//	score = w1·proximity_rank + w2·rating_rank − w3·load
//
// where a rank score is (n−i)/n for the i-th best of n drivers (ties share
// the better rank) and load is active deliveries divided by the cap. Equal
// scores go to the driver with the earliest heartbeat, who has been idle
// longest.
type DriverMatcher struct {
	policy MatchingPolicy
}

func NewDriverMatcher(policy MatchingPolicy) (DriverMatcher, error) {
	if err := policy.Validate(); err != nil {
		return DriverMatcher{}, err
	}
	return DriverMatcher{policy: policy}, nil
}

func (m DriverMatcher) Policy() MatchingPolicy {
	return m.policy
}

// Match returns the best eligible driver or driver.ErrNoEligibleDriver.
func (m DriverMatcher) Match(
	restaurant kernel.Location,
	candidates []driver.Snapshot,
	excluded []kernel.UUID,
	now time.Time,
) (ScoredCandidate, error) {
	ranked, err := m.Rank(restaurant, candidates, excluded, now)
	if err != nil {
		return ScoredCandidate{}, err
	}
	if len(ranked) == 0 {
		return ScoredCandidate{}, driver.ErrNoEligibleDriver
	}
	return ranked[0], nil
}

// Rank returns all eligible drivers, best first.
func (m DriverMatcher) Rank(
	restaurant kernel.Location,
	candidates []driver.Snapshot,
	excluded []kernel.UUID,
	now time.Time,
) ([]ScoredCandidate, error) {
	if err := restaurant.Validate(); err != nil {
		return nil, err
	}

	eligible := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !m.isEligible(c, excluded, now) {
			continue
		}
		distance, err := c.Location.DistanceMeters(restaurant)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", c.DriverID, err)
		}
		if distance > m.policy.SearchRadiusMeters {
			continue
		}
		eligible = append(eligible, ScoredCandidate{Snapshot: c, DistanceMeters: distance})
	}
	if len(eligible) == 0 {
		return eligible, nil
	}

	proximity := rankScores(eligible, func(a, b ScoredCandidate) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})
	rating := rankScores(eligible, func(a, b ScoredCandidate) int {
		return cmp.Compare(b.AvgRating, a.AvgRating)
	})
	for i := range eligible {
		load := float64(eligible[i].ActiveDeliveryCount) / float64(m.policy.MaxActiveDeliveries)
		eligible[i].Score = m.policy.ProximityWeight*proximity[i] +
			m.policy.RatingWeight*rating[i] -
			m.policy.LoadWeight*load
	}

	slices.SortStableFunc(eligible, func(a, b ScoredCandidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.LastHeartbeatAt.Compare(b.LastHeartbeatAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DriverID.String(), b.DriverID.String())
	})
	return eligible, nil
}

func (m DriverMatcher) isEligible(c driver.Snapshot, excluded []kernel.UUID, now time.Time) bool {
	if !c.IsAvailable || c.HasPendingOffer {
		return false
	}
	if now.Sub(c.LastHeartbeatAt) > m.policy.FreshnessWindow {
		return false
	}
	if c.ActiveDeliveryCount >= m.policy.MaxActiveDeliveries {
		return false
	}
	return !slices.ContainsFunc(excluded, c.DriverID.IsEqual)
}

// rankScores orders the candidates with cmpFn and returns, per original index,
// (n−i)/n where i is the position of the first candidate comparing equal.
func rankScores(items []ScoredCandidate, cmpFn func(a, b ScoredCandidate) int) []float64 {
	n := len(items)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmpFn(items[a], items[b])
	})

	scores := make([]float64, n)
	rank := 0
	for pos, idx := range order {
		if pos > 0 && cmpFn(items[order[pos-1]], items[idx]) != 0 {
			rank = pos
		}
		scores[idx] = float64(n-rank) / float64(n)
	}
	return scores
}
