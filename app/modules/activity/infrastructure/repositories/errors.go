package activitydb

import "errors"

// Sentinel errors for the repository layer. The service layer decides whether
// they are domain failures.
var (
	// ErrNotFound indicates the requested user row does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidLimit is returned by TopUsers for non-positive limits.
	ErrInvalidLimit = errors.New("limit must be positive")
)
