package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
)

// NumericCodeGenerator produces fixed-width numeric codes without a leading zero.
type NumericCodeGenerator struct {
	digits int
}

// NewNumericCodeGenerator returns a generator for codes of the given width.
func NewNumericCodeGenerator(digits int) *NumericCodeGenerator {
	if digits <= 0 {
		digits = 6
	}
	return &NumericCodeGenerator{digits: digits}
}

// Generate returns a code drawn uniformly from [10^(n-1), 10^n).
func (g *NumericCodeGenerator) Generate() (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.digits-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	return n.Add(n, low).String(), nil
}

var _ port.CodeGenerator = (*NumericCodeGenerator)(nil)
