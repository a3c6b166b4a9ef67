package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// VerificationCodeLength is the number of digits in an emailed code.
const VerificationCodeLength = 6

// GenerateNumericCode returns n random decimal digits from crypto/rand.
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive")
	}
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
