// Package kernel provides the shared value objects of the order saga domain:
//   - UUID: opaque identifiers for orders, drivers, customers, restaurants and events
//   - Location: a validated latitude/longitude pair with great-circle distance
//   - Money: integer cents so that order totals are computed deterministically
//
// All value objects are immutable; zero values fail Validate.
package kernel
