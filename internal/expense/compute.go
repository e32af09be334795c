// Package expense derives claim amounts from rate settings and aggregates
// approved claims into monthly payment summaries. Nothing here touches storage.
package expense

import (
	"github.com/fieldforce/backend/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultRates apply when an organization has never saved rate settings.
func DefaultRates() models.Rates {
	return models.Rates{
		RatePerKm:               decimal.RequireFromString("2.40"),
		HeadOfficeAmount:        decimal.NewFromInt(150),
		OutsideHeadOfficeAmount: decimal.NewFromInt(175),
	}
}

// Payload carries the category-specific inputs of a claim.
type Payload struct {
	TravelDetails      models.TravelDetails
	DailyAllowanceType string
}

// Computation is the derived amount plus, for travel, the inputs used.
type Computation struct {
	Amount          decimal.Decimal   `json:"amount"`
	TotalDistanceKm *decimal.Decimal  `json:"totalDistanceKm,omitempty"`
	RatePerKm       *decimal.Decimal  `json:"ratePerKm,omitempty"`
	Method          ComputationMethod `json:"-"`
}

// ComputationMethod records which rule produced the amount.
type ComputationMethod int

const (
	MethodUnknownCategory ComputationMethod = iota
	MethodManual
	MethodTravel
	MethodDaily
)

// TotalKm sums the legs. Legs decoded without a usable km already hold zero;
// legs outside [0, MaxLegKm] are skipped.
func TotalKm(legs models.TravelDetails) decimal.Decimal {
	total := decimal.Zero
	for _, leg := range legs {
		if !WithinBounds(leg.Km, MaxLegKm) {
			continue
		}
		total = total.Add(leg.Km)
	}
	return total
}

// ComputeAmount derives the claim amount. A positive manual amount wins over
// the category rules. Unknown categories yield zero rather than an error.
func ComputeAmount(category string, p Payload, rates *models.Rates, manual *decimal.Decimal) Computation {
	if manual != nil && manual.IsPositive() && WithinBounds(*manual, MaxAmount) {
		return Computation{Amount: *manual, Method: MethodManual}
	}

	if rates == nil {
		d := DefaultRates()
		rates = &d
	}

	switch category {
	case models.CategoryTravel:
		km := TotalKm(p.TravelDetails)
		rate := rates.RatePerKm
		return Computation{
			Amount:          km.Mul(rate).Round(2),
			TotalDistanceKm: &km,
			RatePerKm:       &rate,
			Method:          MethodTravel,
		}
	case models.CategoryDaily:
		amount := rates.OutsideHeadOfficeAmount
		if p.DailyAllowanceType == models.DailyAllowanceHeadOffice {
			amount = rates.HeadOfficeAmount
		}
		return Computation{Amount: amount, Method: MethodDaily}
	default:
		return Computation{Amount: decimal.Zero, Method: MethodUnknownCategory}
	}
}
