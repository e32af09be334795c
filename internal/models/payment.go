package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MonthStatusPaid    = "paid"
	MonthStatusPartial = "partial"
	MonthStatusUnpaid  = "unpaid"
)

// PaymentBatch records one month's finalized payout for a user.
type PaymentBatch struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organizationId" db:"organization_id"`
	UserID         string          `json:"userId" db:"user_id"`
	MonthYear      string          `json:"monthYear" db:"month_year"`
	TransactionID  string          `json:"transactionId" db:"transaction_id"`
	ExpenseCount   int             `json:"count" db:"expense_count"`
	TotalAmount    decimal.Decimal `json:"totalAmount" db:"total_amount"`
	PaymentNote    *string         `json:"paymentNote,omitempty" db:"payment_note"`
	PaidAt         time.Time       `json:"paidDate" db:"paid_at"`
	PaidBy         string          `json:"paidBy" db:"paid_by"`
}

// MonthlyPaymentSummary aggregates a user's approved expenses for one month.
type MonthlyPaymentSummary struct {
	MonthYear     string          `json:"monthYear"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	UnpaidAmount  decimal.Decimal `json:"unpaidAmount"`
	PaidCount     int             `json:"paidCount"`
	UnpaidCount   int             `json:"unpaidCount"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentDate   *time.Time      `json:"paymentDate"`
}
