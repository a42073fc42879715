// Package driver models drivers as the assignment engine sees them.
//
// Candidate is the ephemeral, registry-owned record built from heartbeats:
// location, availability, rating, current load and at most one pending Offer.
// A second offer to a driver with a pending one fails with ErrDriverBusy.
package driver
