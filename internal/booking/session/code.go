package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/random"
)

const (
	CodePrefix = "BUS"
	codeLength = 8
	codeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type codeChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// NewCode returns CodePrefix followed by eight uppercase alphanumerics.
func NewCode(rnd random.Source) string {
	var b strings.Builder
	b.Grow(len(CodePrefix) + codeLength)
	b.WriteString(CodePrefix)
	for range codeLength {
		b.WriteByte(codeChars[rnd.IntN(len(codeChars))])
	}
	return b.String()
}

// uniqueCode regenerates on collision with a stored booking, giving up
// after attempts tries. A nil checker accepts the first code.
func uniqueCode(ctx context.Context, rnd random.Source, checker codeChecker, attempts int) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	for range attempts {
		code := NewCode(rnd)
		if checker == nil {
			return code, nil
		}
		exists, err := checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check booking code %s: %w", code, err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%d attempts: %w", attempts, domain.ErrCodeExhausted)
}
