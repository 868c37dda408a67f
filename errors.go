package accounts

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNoEmptyString is returned when a credential operation receives empty input
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrAlreadyRegistered is returned when a signup targets a confirmed account.
// The message deliberately does not say whether the account is verified or
// merely pending.
var ErrAlreadyRegistered = goerrors.New(
	"Email already registered. Please login or use a different email.",
	goerrors.CategoryConflict,
).WithTextCode("ALREADY_REGISTERED").WithCode(goerrors.CodeBadRequest)

// ErrRegistrationNotFound is returned when no pending registration exists for
// the email
var ErrRegistrationNotFound = goerrors.New(
	"No pending verification found. Please sign up again.",
	goerrors.CategoryNotFound,
).WithTextCode("REGISTRATION_NOT_FOUND").WithCode(goerrors.CodeNotFound)

// ErrOTPExpired is returned once the code's validity window has elapsed; the
// pending record is gone by the time the caller sees this.
var ErrOTPExpired = goerrors.New(
	"OTP has expired. Please sign up again.",
	goerrors.CategoryValidation,
).WithTextCode("OTP_EXPIRED").WithCode(goerrors.CodeBadRequest)

// ErrTooManyAttempts is returned when the attempt budget is exhausted, even
// if the submitted code would otherwise match.
var ErrTooManyAttempts = goerrors.New(
	"Too many failed attempts. Please sign up again.",
	goerrors.CategoryRateLimit,
).WithTextCode("TOO_MANY_ATTEMPTS")

// ErrInvalidCredentials is the uniform login failure; it must not distinguish
// an unknown email from a wrong password.
var ErrInvalidCredentials = goerrors.New(
	"Invalid email or password",
	goerrors.CategoryAuth,
).WithTextCode("INVALID_CREDENTIALS").WithCode(goerrors.CodeUnauthorized)

// ErrUnverifiedAccount blocks password login until the email is confirmed
var ErrUnverifiedAccount = goerrors.New(
	"Please verify your email before logging in",
	goerrors.CategoryAuthz,
).WithTextCode("UNVERIFIED_ACCOUNT").WithCode(goerrors.CodeForbidden)

// ErrInactiveAccount blocks login for deactivated accounts
var ErrInactiveAccount = goerrors.New(
	"Account is inactive",
	goerrors.CategoryAuthz,
).WithTextCode("INACTIVE_ACCOUNT").WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned when a session token is past its embedded expiry
var ErrTokenExpired = goerrors.New(
	"Token has expired",
	goerrors.CategoryAuth,
).WithTextCode("TOKEN_EXPIRED").WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers signature mismatches and undecodable payloads
var ErrTokenMalformed = goerrors.New(
	"Could not validate credentials",
	goerrors.CategoryAuth,
).WithTextCode("TOKEN_MALFORMED").WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is the store-level uniqueness violation surfaced when an
// insert races a concurrent registration for the same email. Flows translate
// it before it reaches a caller; should it leak to the boundary anyway it
// must not map to a status distinguishable from a plain duplicate signup.
var ErrDuplicateEmail = goerrors.New(
	"Email already registered. Please login or use a different email.",
	goerrors.CategoryConflict,
).WithTextCode("DUPLICATE_EMAIL").WithCode(goerrors.CodeBadRequest)

// InvalidOTPError builds the mismatch error carrying the remaining-attempts
// count. A fresh value is built per call so metadata never leaks across
// requests.
func InvalidOTPError(remaining int) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("Invalid OTP. %d attempts remaining.", remaining),
		goerrors.CategoryValidation,
	).WithTextCode("INVALID_OTP").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"remaining_attempts": remaining})
}
