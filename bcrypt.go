package accounts

import (
	"crypto/sha256"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor applied to the slow hash.
const BcryptCost = 12

// normalizePassword reduces arbitrary-length input to a fixed 64-char hex
// digest before the slow hash runs. bcrypt silently truncates input past 72
// bytes; the pre-digest keeps every byte of a long password in play.
func normalizePassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword will generate a salted password hash with the configured work
// factor. The pre-digest makes HashPassword total over password length.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("password must not be empty", goerrors.CategoryValidation).
			WithTextCode("EMPTY_PASSWORD").
			WithCode(goerrors.CodeBadRequest)
	}

	h, err := bcrypt.GenerateFromPassword(normalizePassword(password), BcryptCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(h), nil
}

// VerifyPassword will validate the given cleartext password against the
// stored hash. It never errors: empty input or a malformed stored hash simply
// fails the check.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), normalizePassword(password)) == nil
}
