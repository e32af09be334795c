package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VisitKind selects the target entity a visit belongs to.
type VisitKind string

const (
	VisitKindDoctor   VisitKind = "doctor"
	VisitKindChemist  VisitKind = "chemist"
	VisitKindStockist VisitKind = "stockist"
)

var visitTables = map[VisitKind]struct{ visits, targets string }{
	VisitKindDoctor:   {visits: "doctor_visits", targets: "doctors"},
	VisitKindChemist:  {visits: "chemist_visits", targets: "chemists"},
	VisitKindStockist: {visits: "stockist_visits", targets: "stockists"},
}

// ParseVisitKind accepts the path segment used by the API.
func ParseVisitKind(s string) (VisitKind, bool) {
	k := VisitKind(s)
	_, ok := visitTables[k]
	return k, ok
}

func (k VisitKind) VisitTable() string {
	return visitTables[k].visits
}

func (k VisitKind) TargetTable() string {
	return visitTables[k].targets
}

// GeoPoint is a stored latitude/longitude pair.
type GeoPoint struct {
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
}

// Locatable is implemented by every visit target.
type Locatable interface {
	Location() (GeoPoint, bool)
}

// Target is a doctor, chemist or stockist.
type Target struct {
	ID             string              `json:"id" db:"id"`
	OrganizationID string              `json:"organizationId" db:"organization_id"`
	Kind           VisitKind           `json:"kind"`
	Name           string              `json:"name" db:"name"`
	Latitude       decimal.NullDecimal `json:"latitude" db:"latitude"`
	Longitude      decimal.NullDecimal `json:"longitude" db:"longitude"`
}

// Location returns the target's point when both coordinates are on file.
func (t Target) Location() (GeoPoint, bool) {
	if !t.Latitude.Valid || !t.Longitude.Valid {
		return GeoPoint{}, false
	}
	return GeoPoint{Latitude: t.Latitude.Decimal, Longitude: t.Longitude.Decimal}, true
}

type Visit struct {
	ID             string              `json:"id" db:"id"`
	OrganizationID string              `json:"organizationId" db:"organization_id"`
	Kind           VisitKind           `json:"kind"`
	TargetID       string              `json:"targetId" db:"target_id"`
	UserID         string              `json:"userId" db:"user_id"`
	VisitDate      time.Time           `json:"date" db:"visit_date"`
	Notes          string              `json:"notes" db:"notes"`
	Confirmed      bool                `json:"confirmed" db:"confirmed"`
	Latitude       decimal.NullDecimal `json:"latitude" db:"latitude"`
	Longitude      decimal.NullDecimal `json:"longitude" db:"longitude"`
	ConfirmedAt    *time.Time          `json:"confirmedAt,omitempty" db:"confirmed_at"`
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" db:"updated_at"`
}

// VisitConfirmation is the outcome of a confirmation attempt. A too-far
// attempt is a result, not an error: the visit is left untouched.
type VisitConfirmation struct {
	Mutated        bool   `json:"mutated"`
	TooFar         bool   `json:"tooFar,omitempty"`
	DistanceMeters *int64 `json:"distanceMeters,omitempty"`
	Message        string `json:"message,omitempty"`
	Visit          *Visit `json:"visit,omitempty"`
}
