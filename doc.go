// Package accounts provides the CounselGPT identity subsystem: two-phase
// email signup with one-time passcode verification, password login, and
// session token issuance.
//
// Registration lifecycle:
//   - Signup stages a PendingRegistration with a hashed password and a
//     six digit passcode dispatched over email. Repeating signup for a
//     still-unconfirmed email overwrites the staged record and restarts the
//     expiry clock.
//   - VerifyOTP promotes the staged record into a confirmed User inside a
//     transaction and issues a session token. Codes expire after ten minutes
//     and lock after five failed attempts; both outcomes force the caller
//     back to signup.
//   - Authenticator handles password login against confirmed identities with
//     a uniform credentials error, so callers cannot probe which emails
//     exist.
//
// Sessions:
//   - TokenService signs HS256 JWTs carrying the subject email and an
//     internal user id. Protected is the fiber middleware that resolves a
//     bearer token back into the stored identity.
//
// Federated login lives in the social subpackage; it shares the Users store
// and TokenService so accounts created either way are interchangeable.
package accounts
