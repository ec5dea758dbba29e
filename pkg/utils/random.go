package utils

import (
	"crypto/rand"
	"math/big"
)

// RandomInt returns a uniform random integer in [min, max].
func RandomInt(min, max int) int {
	if max <= min {
		return min
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		// crypto rand failing is effectively impossible; fall back to min
		return min
	}
	return min + int(n.Int64())
}
