package accounts

import (
	"crypto/rand"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

// OTPLength is the number of digits in a generated passcode.
const OTPLength = 6

var otpDigits = big.NewInt(10)

// GenerateOTP produces a fixed-length numeric code, each digit drawn
// independently and uniformly from a cryptographically unpredictable source.
// Leading zeros are valid.
func GenerateOTP() (string, error) {
	code := make([]byte, OTPLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, otpDigits)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate passcode")
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
