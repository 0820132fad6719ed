package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

const (
	orderPrefix   = "ORD"
	invoicePrefix = "INV"

	numberAttempts = 10
)

// ErrNumberSpaceExhausted is returned when every attempt produced a taken number.
var ErrNumberSpaceExhausted = errors.New("could not allocate a unique number")

func randomDigits() int {
	return rand.Intn(10000)
}

// uniqueNumber formats PREFIX-yyyymmddhhmmss-NNNN and retries while exists reports a collision.
func (s *Service) uniqueNumber(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	stamp := s.now().UTC().Format("20060102150405")
	for i := 0; i < numberAttempts; i++ {
		number := fmt.Sprintf("%s-%s-%04d", prefix, stamp, s.digits())
		taken, err := exists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check %s number: %w", prefix, err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrNumberSpaceExhausted
}
