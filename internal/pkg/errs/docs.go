// Package errs holds the structured errors shared by the domain, the use
// cases and the adapters.
//
// Each error type unwraps to a sentinel, so callers classify with errors.Is
// and adapters map the sentinel to a transport status:
//
//	ErrValueIsRequired, ErrValueIsInvalid, ErrValueIsOutOfRange  input validation (IsValidation)
//	ErrObjectNotFound                                          unknown order, delivery or driver
//
// The struct types carry the offending parameter and an optional cause.
// Messages are kept on one line so they can be logged as a single attribute.
package errs
