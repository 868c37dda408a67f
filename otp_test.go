package accounts_test

import (
	"testing"

	accounts "github.com/counselgpt/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	code, err := accounts.GenerateOTP()
	assert.NoError(t, err)
	assert.Len(t, code, accounts.OTPLength)
	for _, ch := range code {
		assert.True(t, ch >= '0' && ch <= '9', "expected digit, got %q", ch)
	}
}

func TestGenerateOTPDigitDistribution(t *testing.T) {
	const draws = 2000

	counts := map[rune]int{}
	for i := 0; i < draws; i++ {
		code, err := accounts.GenerateOTP()
		require.NoError(t, err)
		for _, ch := range code {
			counts[ch]++
		}
	}

	// 12000 digit draws, expected 1200 per digit with a standard deviation
	// around 33; a band of roughly six sigma keeps the test deterministic in
	// practice while still failing for any skewed source (a digit that never
	// appears, or a source limited to a subset of digits).
	total := draws * accounts.OTPLength
	expected := total / 10
	low, high := expected-200, expected+200

	for d := '0'; d <= '9'; d++ {
		n := counts[d]
		assert.GreaterOrEqual(t, n, low, "digit %c underrepresented: %d of %d", d, n, total)
		assert.LessOrEqual(t, n, high, "digit %c overrepresented: %d of %d", d, n, total)
	}
}

func TestGenerateOTPVariation(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := accounts.GenerateOTP()
		assert.NoError(t, err)
		seen[code] = true
	}
	// 50 draws from a million-value space colliding down to a handful would
	// mean the source is broken.
	assert.Greater(t, len(seen), 40)
}
