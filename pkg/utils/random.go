package utils

import (
	"crypto/rand"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomID generates a random string of length n
func GenerateRandomID(n int) string {
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return ""
		}
		b[i] = charset[num.Int64()]
	}
	return string(b)
}

// RandomIndex returns a uniformly distributed index in [0, n).
func RandomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	num, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(num.Int64())
}

// PickOne returns a uniformly random element of items, or "" when empty.
func PickOne(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[RandomIndex(len(items))]
}
