package config

import (
	"time"

	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/models"
)

// LoadRateDefaults returns the rates used by organizations that have not
// saved their own. Loaded once at startup.
func LoadRateDefaults() *models.Rates {
	d := expense.DefaultRates()
	return &models.Rates{
		RatePerKm:               getEnvAsDecimal("RATE_PER_KM", d.RatePerKm),
		HeadOfficeAmount:        getEnvAsDecimal("RATE_HEAD_OFFICE_AMOUNT", d.HeadOfficeAmount),
		OutsideHeadOfficeAmount: getEnvAsDecimal("RATE_OUTSIDE_HEAD_OFFICE_AMOUNT", d.OutsideHeadOfficeAmount),
	}
}

type GeofenceConfig struct {
	RadiusMeters float64
}

func LoadGeofenceConfig() *GeofenceConfig {
	radius := getEnvAsFloat("GEOFENCE_RADIUS_METERS", 200)
	if radius <= 0 {
		radius = 200
	}
	return &GeofenceConfig{RadiusMeters: radius}
}

type ReceiptConfig struct {
	TTL        time.Duration
	ImageSize  int
	BaseURL    string
	Currency   string
	PayerName  string
	PayerAgent string
}

// LoadReceiptConfig covers payment receipts and ISO 20022 instructions.
func LoadReceiptConfig() *ReceiptConfig {
	return &ReceiptConfig{
		TTL:        getEnvAsDuration("RECEIPT_TTL", 30*24*time.Hour),
		ImageSize:  256,
		BaseURL:    getEnv("RECEIPT_BASE_URL", "http://localhost:8080/api/v1/payments/receipts/"),
		Currency:   getEnv("PAYOUT_CURRENCY", "INR"),
		PayerName:  getEnv("PAYOUT_PAYER_NAME", "FIELDFORCE PAYROLL"),
		PayerAgent: getEnv("PAYOUT_PAYER_BIC", "FLDFINBBXXX"),
	}
}

// AdminSeed provisions an organization's first admin at startup. Nothing is
// seeded when Email is empty.
type AdminSeed struct {
	OrganizationID string
	Email          string
	Password       string
	FirstName      string
	LastName       string
}

func LoadAdminSeed() *AdminSeed {
	return &AdminSeed{
		OrganizationID: getEnv("ADMIN_ORGANIZATION_ID", ""),
		Email:          getEnv("ADMIN_EMAIL", ""),
		Password:       getEnv("ADMIN_PASSWORD", ""),
		FirstName:      getEnv("ADMIN_FIRST_NAME", "Admin"),
		LastName:       getEnv("ADMIN_LAST_NAME", "User"),
	}
}
