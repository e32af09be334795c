package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"

	CategoryTravel = "travel"
	CategoryDaily  = "daily"

	DailyAllowanceHeadOffice = "headoffice"
)

// TravelLeg is one leg of a travel claim. Km that is missing or not a
// number decodes to zero.
type TravelLeg struct {
	Km   decimal.Decimal `json:"km"`
	From string          `json:"from,omitempty"`
	To   string          `json:"to,omitempty"`
}

func (l *TravelLeg) UnmarshalJSON(data []byte) error {
	var raw struct {
		Km   json.RawMessage `json:"km"`
		From string          `json:"from"`
		To   string          `json:"to"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.From, l.To = raw.From, raw.To
	l.Km = parseKm(raw.Km)
	return nil
}

func parseKm(raw json.RawMessage) decimal.Decimal {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	km, err := decimal.NewFromString(s)
	if err != nil || km.IsNegative() {
		return decimal.Zero
	}
	return km
}

// TravelDetails is stored as JSONB.
type TravelDetails []TravelLeg

// Value implements driver.Valuer for TravelDetails
func (t TravelDetails) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for TravelDetails
func (t *TravelDetails) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, t)
}

type Expense struct {
	ID                 string              `json:"id" db:"id"`
	OrganizationID     string              `json:"organizationId" db:"organization_id"`
	UserID             string              `json:"userId" db:"user_id"`
	Category           string              `json:"category" db:"category"`
	Status             string              `json:"status" db:"status"`
	Amount             decimal.Decimal     `json:"amount" db:"amount"`
	TravelDetails      TravelDetails       `json:"travelDetails,omitempty" db:"travel_details"`
	TotalDistanceKm    decimal.NullDecimal `json:"totalDistanceKm" db:"total_distance_km"`
	RatePerKm          decimal.NullDecimal `json:"ratePerKm" db:"rate_per_km"`
	DailyAllowanceType *string             `json:"dailyAllowanceType,omitempty" db:"daily_allowance_type"`
	Date               time.Time           `json:"date" db:"date"`
	EndDate            *time.Time          `json:"endDate,omitempty" db:"end_date"`
	Description        string              `json:"description" db:"description"`
	EditCount          int                 `json:"editCount" db:"edit_count"`
	PaymentStatus      string              `json:"paymentStatus" db:"payment_status"`
	PaymentDate        *time.Time          `json:"paymentDate,omitempty" db:"payment_date"`
	PaymentMonthYear   *string             `json:"paymentMonthYear,omitempty" db:"payment_month_year"`
	TransactionID      *string             `json:"transactionId,omitempty" db:"transaction_id"`
	PaymentNote        *string             `json:"paymentNote,omitempty" db:"payment_note"`
	ReviewedBy         *string             `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt         *time.Time          `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt          time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time           `json:"updatedAt" db:"updated_at"`
}

// Rates are the organization-wide reimbursement rates.
type Rates struct {
	RatePerKm               decimal.Decimal `json:"ratePerKm" db:"rate_per_km"`
	HeadOfficeAmount        decimal.Decimal `json:"headOfficeAmount" db:"head_office_amount"`
	OutsideHeadOfficeAmount decimal.Decimal `json:"outsideHeadOfficeAmount" db:"outside_head_office_amount"`
}

// RateSettings is the stored, per-organization copy of Rates.
type RateSettings struct {
	OrganizationID string `json:"organizationId" db:"organization_id"`
	Rates
	IsDefault bool       `json:"isDefault"`
	UpdatedBy *string    `json:"updatedBy,omitempty" db:"updated_by"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}
