package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpModulus bounds the rejection sample to six decimal digits.
var otpModulus = big.NewInt(1_000_000)

// GenerateOTP produces a cryptographically random 6-digit code via
// rejection sampling, zero-padded, per §4.1 "generates a cryptographically
// random 6-digit OTP".
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpModulus)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
