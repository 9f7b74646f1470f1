package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberLength   = 8

	DefaultOrderNumberPrefix = "QO"
)

// GenerateOrderNumber returns prefix followed by 8 characters drawn
// uniformly from [A-Z0-9] using crypto/rand, e.g. "QO7K2M9QXA".
func GenerateOrderNumber(prefix string) (string, error) {
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	b := make([]byte, orderNumberLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		b[i] = orderNumberAlphabet[n.Int64()]
	}
	return prefix + string(b), nil
}
