package credentials

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	alphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 10
)

// ErrCodeSpaceExhausted is returned when codeAttempts random codes all collided.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique code")

var alphabetSize = big.NewInt(int64(len(alphabet)))

// randomAlnum returns n characters drawn uniformly from A-Z0-9.
func randomAlnum(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// uniqueCode draws candidates from gen until exists reports a free one.
func uniqueCode(ctx context.Context, gen func() (string, error), exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := gen()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
