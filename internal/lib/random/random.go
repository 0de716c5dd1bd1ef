// Package random генерирует криптографически стойкие случайные строки.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphanumeric набор символов для сессионных токенов.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var alphabetSize = big.NewInt(int64(len(Alphanumeric)))

// String возвращает строку длины n из символов Alphanumeric.
func String(n int) (string, error) {
	const op = "random.String"
	if n <= 0 {
		return "", fmt.Errorf("%s: length must be positive, got %d", op, n)
	}
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		buf[i] = Alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}
