package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is the root of every token validation failure.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrDecode               = fmt.Errorf("%w: decode error", ErrInvalidToken)
	ErrMissingRequiredClaim = fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	ErrTokenNotFound        = fmt.Errorf("%w: token not found", ErrInvalidToken)
	ErrTokenExpired         = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrTokenImmature        = fmt.Errorf("%w: token not yet valid", ErrInvalidToken)
	ErrMaxUseExceeded       = fmt.Errorf("%w: max uses exceeded", ErrInvalidToken)
	ErrScopeMismatch        = fmt.Errorf("%w: scope mismatch", ErrInvalidToken)
	ErrAudienceMismatch     = fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	ErrTokenRequired        = fmt.Errorf("%w: token required", ErrInvalidToken)
)

// Classifications stored alongside failed attempts.
const (
	ClassDecodeError          = "DecodeError"
	ClassMissingRequiredClaim = "MissingRequiredClaim"
	ClassTokenNotFound        = "TokenNotFound"
	ClassTokenExpired         = "TokenExpired"
	ClassTokenImmature        = "TokenImmature"
	ClassMaxUseExceeded       = "MaxUseExceeded"
	ClassScopeMismatch        = "ScopeMismatch"
	ClassAudienceMismatch     = "AudienceMismatch"
	ClassTokenRequired        = "TokenRequired"
	ClassInvalidToken         = "InvalidToken"
)

// MissingClaimError names the mandatory claim a token lacked.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingRequiredClaim, e.Claim)
}

func (e *MissingClaimError) Unwrap() error { return ErrMissingRequiredClaim }

var classes = []struct {
	err   error
	class string
}{
	{ErrDecode, ClassDecodeError},
	{ErrMissingRequiredClaim, ClassMissingRequiredClaim},
	{ErrTokenNotFound, ClassTokenNotFound},
	{ErrTokenExpired, ClassTokenExpired},
	{ErrTokenImmature, ClassTokenImmature},
	{ErrMaxUseExceeded, ClassMaxUseExceeded},
	{ErrScopeMismatch, ClassScopeMismatch},
	{ErrAudienceMismatch, ClassAudienceMismatch},
	{ErrTokenRequired, ClassTokenRequired},
}

// Classify returns the stable classification of a token error, or the empty
// string when err is not one.
func Classify(err error) string {
	if !errors.Is(err, ErrInvalidToken) {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.class
		}
	}
	return ClassInvalidToken
}

// IsHardFailure reports whether err must abort the request rather than
// letting it continue without a token.
func IsHardFailure(err error) bool {
	return errors.Is(err, ErrScopeMismatch) ||
		errors.Is(err, ErrAudienceMismatch) ||
		errors.Is(err, ErrTokenRequired)
}
