// Package validation provides common validation utilities for configuration
// parameters across the tempo library.
//
// Constructors in the ratelimit packages use these helpers so that every
// rejected argument surfaces as a *errors.ValidationError with a consistent
// message and hint.
package validation
