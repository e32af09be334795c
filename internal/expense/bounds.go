package expense

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Limits match the NUMERIC columns the values are stored in.
var (
	MaxLegKm   = decimal.NewFromInt(10000)
	MaxTotalKm = decimal.RequireFromString("99999999.99")
	MaxRate    = decimal.RequireFromString("99999999.99")
	MaxAmount  = decimal.RequireFromString("9999999999.99")
)

const (
	maxExponent = 12
	// 2^80 is about 1.2e24.
	maxCoefficientBits = 80
)

var ErrOutOfRange = errors.New("value out of range")

// WithinBounds reports whether d lies in [0, max]. The exponent and
// coefficient size are checked before any comparison: comparing or rounding a
// decimal rescales it to a big.Int of 10^exponent.
func WithinBounds(d, max decimal.Decimal) bool {
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return false
	}
	if d.Coefficient().BitLen() > maxCoefficientBits {
		return false
	}
	return !d.IsNegative() && d.LessThanOrEqual(max)
}

// ValidatePayload rejects travel legs whose km cannot be a real distance.
func ValidatePayload(p Payload) error {
	for i, leg := range p.TravelDetails {
		if !WithinBounds(leg.Km, MaxLegKm) {
			return fmt.Errorf("%w: travelDetails[%d].km must be between 0 and %s", ErrOutOfRange, i, MaxLegKm)
		}
	}
	return nil
}
