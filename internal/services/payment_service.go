package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/database"
	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/metrics"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentService struct {
	db        *sql.DB
	validator *ValidationHelper
	audit     AuditLogger
	log       *zap.Logger
}

func NewPaymentService(db *sql.DB, auditLogger AuditLogger, log *zap.Logger) *PaymentService {
	return &PaymentService{
		db:        db,
		validator: NewValidationHelper(),
		audit:     auditLogger,
		log:       log.Named("payments"),
	}
}

// FinalizeRequest marks a user's approved claims for a month as paid
// @Description Monthly payment finalization
type FinalizeRequest struct {
	UserID        string  `json:"userId" validate:"required,uuid" example:"2f1c6c7e-3a55-4c3e-9a4b-5b8f0c1d2e3f"`
	MonthYear     string  `json:"monthYear" validate:"required,monthyear" example:"2024-02"`
	TransactionID string  `json:"transactionId" validate:"required,max=100" example:"NEFT-000123"`
	PaymentNote   *string `json:"paymentNote" validate:"omitempty,max=500"`
}

// FinalizeResponse summarizes the created payment batch
// @Description Monthly payment finalization result
type FinalizeResponse struct {
	BatchID       string          `json:"batchId"`
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"number"`
	MonthYear     string          `json:"monthYear"`
	PaidDate      time.Time       `json:"paidDate"`
	TransactionID string          `json:"transactionId"`
}

// FinalizeMonthPayment pays every approved, unpaid claim of the user whose
// date falls in the month or whose date range overlaps it. The selection and
// the update are one statement inside one transaction together with the batch
// record, so a concurrent finalization for the same month finds nothing left
// to pay.
func (s *PaymentService) FinalizeMonthPayment(ctx context.Context, actor Actor, req FinalizeRequest) (*models.PaymentBatch, error) {
	start, end, err := expense.MonthWindow(req.MonthYear)
	if err != nil {
		return nil, invalid(err)
	}

	batch := &models.PaymentBatch{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		UserID:         req.UserID,
		MonthYear:      req.MonthYear,
		TransactionID:  req.TransactionID,
		TotalAmount:    decimal.Zero,
		PaymentNote:    req.PaymentNote,
		PaidAt:         time.Now().UTC(),
		PaidBy:         actor.UserID,
	}

	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE expenses
			SET payment_status = 'paid', payment_date = $1, payment_month_year = $2,
				transaction_id = $3, payment_note = $4, updated_at = $1
			WHERE organization_id = $5 AND user_id = $6
				AND status = 'approved' AND payment_status = 'unpaid'
				AND ((date BETWEEN $7 AND $8) OR (end_date IS NOT NULL AND date <= $8 AND end_date >= $7))
			RETURNING id, amount`,
			batch.PaidAt, req.MonthYear, req.TransactionID, req.PaymentNote,
			actor.OrganizationID, req.UserID, start.Format(dateLayout), end.Format(dateLayout))
		if err != nil {
			return fmt.Errorf("mark expenses paid: %w", err)
		}

		var ids []string
		for rows.Next() {
			var id string
			var amount decimal.Decimal
			if err := rows.Scan(&id, &amount); err != nil {
				rows.Close()
				return fmt.Errorf("scan paid expense: %w", err)
			}
			ids = append(ids, id)
			batch.TotalAmount = batch.TotalAmount.Add(amount)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("mark expenses paid: %w", err)
		}

		if len(ids) == 0 {
			return notFoundf("no approved unpaid expenses for %s", req.MonthYear)
		}
		batch.ExpenseCount = len(ids)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_batches (id, organization_id, user_id, month_year, transaction_id,
				expense_ids, expense_count, total_amount, payment_note, paid_at, paid_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			batch.ID, batch.OrganizationID, batch.UserID, batch.MonthYear, batch.TransactionID,
			pq.Array(ids), batch.ExpenseCount, batch.TotalAmount, batch.PaymentNote, batch.PaidAt, batch.PaidBy)
		if err != nil {
			return fmt.Errorf("record payment batch: %w", err)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.audit.LogError(actor.OrganizationID, actor.UserID, batch.ID, err)
		}
		return nil, err
	}

	metrics.PaymentBatches.Inc()
	metrics.ExpensesFinalized.Add(float64(batch.ExpenseCount))
	s.audit.LogPayment(actor.OrganizationID, actor.UserID, batch.ID, batch.TotalAmount, map[string]string{
		"user_id":        batch.UserID,
		"month_year":     batch.MonthYear,
		"transaction_id": batch.TransactionID,
		"count":          fmt.Sprint(batch.ExpenseCount),
	})
	return batch, nil
}

// ApprovedExpenses returns the user's approved claims, newest first.
func (s *PaymentService) ApprovedExpenses(ctx context.Context, orgID, userID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE organization_id = $1 AND user_id = $2 AND status = 'approved'
		ORDER BY date DESC`, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("load approved expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// PaymentSummary groups the user's approved claims by month.
func (s *PaymentService) PaymentSummary(ctx context.Context, orgID, userID string) ([]models.MonthlyPaymentSummary, error) {
	expenses, err := s.ApprovedExpenses(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	return expense.Summarize(expenses), nil
}

// SummaryUserID resolves whose summary the caller asked for. Only reviewers
// may look at another user.
func SummaryUserID(r *http.Request, actor Actor) string {
	if userID := r.URL.Query().Get("userId"); userID != "" && models.CanReview(actor.Role) {
		return userID
	}
	return actor.UserID
}

// GetBatch returns a payment batch visible to the caller.
func (s *PaymentService) GetBatch(ctx context.Context, actor Actor, batchID string) (*models.PaymentBatch, error) {
	var b models.PaymentBatch
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, month_year, transaction_id, expense_count, total_amount, payment_note, paid_at, paid_by
		FROM payment_batches WHERE id = $1 AND organization_id = $2`, batchID, actor.OrganizationID,
	).Scan(&b.ID, &b.OrganizationID, &b.UserID, &b.MonthYear, &b.TransactionID, &b.ExpenseCount,
		&b.TotalAmount, &b.PaymentNote, &b.PaidAt, &b.PaidBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("payment batch %s not found", batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment batch: %w", err)
	}
	if b.UserID != actor.UserID && !models.CanReview(actor.Role) {
		return nil, notFoundf("payment batch %s not found", batchID)
	}
	return &b, nil
}

// Payee looks up the display name of the paid user.
func (s *PaymentService) Payee(ctx context.Context, orgID, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, first_name, last_name, phone_number, role
		FROM users WHERE id = $1 AND organization_id = $2`, userID, orgID,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load payee: %w", err)
	}
	return &u, nil
}

// Finalize handles monthly payment finalization
// @Summary Finalize a month's payment
// @Description Mark every approved, unpaid claim of a user in the month as paid, as one batch
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FinalizeRequest true "Finalization"
// @Success 200 {object} FinalizeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Nothing to pay"
// @Router /payments/finalize [post]
func (s *PaymentService) Finalize(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req FinalizeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	batch, err := s.FinalizeMonthPayment(r.Context(), actor, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}

	writeJSON(w, http.StatusOK, FinalizeResponse{
		BatchID:       batch.ID,
		Count:         batch.ExpenseCount,
		TotalAmount:   batch.TotalAmount,
		MonthYear:     batch.MonthYear,
		PaidDate:      batch.PaidAt,
		TransactionID: batch.TransactionID,
	})
}

// Summary handles the monthly payment summary
// @Summary Monthly payment summary
// @Description Approved claims grouped by month with paid and unpaid totals, newest month first
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Another user's summary (managers and admins)"
// @Success 200 {array} models.MonthlyPaymentSummary
// @Router /payments/summary [get]
func (s *PaymentService) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	summary, err := s.PaymentSummary(r.Context(), actor.OrganizationID, SummaryUserID(r, actor))
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// BatchFromRequest loads the {batchId} batch, writing the error response on
// failure.
func (s *PaymentService) BatchFromRequest(w http.ResponseWriter, r *http.Request) (Actor, *models.PaymentBatch, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return Actor{}, nil, false
	}
	batch, err := s.GetBatch(r.Context(), actor, chi.URLParam(r, "batchId"))
	if err != nil {
		WriteError(w, s.log, err)
		return Actor{}, nil, false
	}
	return actor, batch, true
}
