package shared

import "errors"

// Authentication and authorization failure taxonomy. Every auth failure in
// the service resolves to one of these sentinels before it reaches a
// transport boundary.
var (
	// ErrInvalidCredentials indicates login failure. It never distinguishes
	// an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a token whose signature or expiry did not
	// verify. Signature and expiry failures are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidRefreshToken indicates a refresh token that failed
	// verification or no longer matches the stored record.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrMissingBearer indicates a request without a bearer token where one
	// was required.
	ErrMissingBearer = errors.New("missing bearer token")
	// ErrMissingServiceSignature indicates an internal-only operation called
	// without a valid service signature.
	ErrMissingServiceSignature = errors.New("missing or invalid service signature")
	// ErrMissingUserContext indicates an operation requiring a resolved
	// identity where none could be derived.
	ErrMissingUserContext = errors.New("missing user context")
	// ErrPermissionDenied indicates a resolved identity whose role is not on
	// the operation's allow-list, or a failed ownership check.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUserNotFound indicates a lookup for a principal that does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail indicates registration with an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
)
