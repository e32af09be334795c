package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const expenseColumns = `id, organization_id, user_id, category, status, amount, travel_details, total_distance_km, rate_per_km, daily_allowance_type, date, end_date, description, edit_count, payment_status, payment_date, payment_month_year, transaction_id, payment_note, reviewed_by, reviewed_at, created_at, updated_at`

// RatesProvider looks up the rates in force for an organization.
type RatesProvider interface {
	Rates(ctx context.Context, orgID string) (*models.Rates, error)
}

type ExpenseService struct {
	db        *sql.DB
	rates     RatesProvider
	validator *ValidationHelper
	audit     AuditLogger
	log       *zap.Logger
}

func NewExpenseService(db *sql.DB, rates RatesProvider, auditLogger AuditLogger, log *zap.Logger) *ExpenseService {
	return &ExpenseService{
		db:        db,
		rates:     rates,
		validator: NewValidationHelper(),
		audit:     auditLogger,
		log:       log.Named("expenses"),
	}
}

// ExpenseRequest is the claim payload for create and edit
// @Description Expense claim
type ExpenseRequest struct {
	Category           string               `json:"category" validate:"required,max=50" example:"travel"`
	TravelDetails      models.TravelDetails `json:"travelDetails"`
	DailyAllowanceType string               `json:"dailyAllowanceType" validate:"max=50" example:"headoffice"`
	Date               string               `json:"date" validate:"required,datetime=2006-01-02" example:"2024-02-14"`
	EndDate            *string              `json:"endDate" validate:"omitempty,datetime=2006-01-02" example:"2024-02-15"`
	Description        string               `json:"description" validate:"max=1000"`
}

// QuickAddRequest records a claim with a caller-supplied amount
// @Description Quick-add expense
type QuickAddRequest struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"499.99"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02" example:"2024-02-14"`
	Description string          `json:"description" validate:"max=1000"`
	Category    string          `json:"category" validate:"max=50" example:"other"`
}

// ReviewRequest approves or rejects a pending claim
// @Description Expense review
type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected" example:"approved"`
}

type claimDates struct {
	date    time.Time
	endDate *time.Time
}

func parseClaimDates(date string, endDate *string) (claimDates, error) {
	d, err := parseDate(date)
	if err != nil {
		return claimDates{}, invalidf("date must be YYYY-MM-DD")
	}
	out := claimDates{date: d}
	if endDate != nil && *endDate != "" {
		e, err := parseDate(*endDate)
		if err != nil {
			return claimDates{}, invalidf("endDate must be YYYY-MM-DD")
		}
		if e.Before(d) {
			return claimDates{}, invalidf("endDate must not be before date")
		}
		out.endDate = &e
	}
	return out, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.Category, &e.Status, &e.Amount,
		&e.TravelDetails, &e.TotalDistanceKm, &e.RatePerKm, &e.DailyAllowanceType, &e.Date, &e.EndDate,
		&e.Description, &e.EditCount, &e.PaymentStatus, &e.PaymentDate, &e.PaymentMonthYear,
		&e.TransactionID, &e.PaymentNote, &e.ReviewedBy, &e.ReviewedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *ExpenseService) compute(ctx context.Context, actor Actor, category string, p expense.Payload) (expense.Computation, error) {
	if err := expense.ValidatePayload(p); err != nil {
		return expense.Computation{}, invalid(err)
	}
	rates, err := s.rates.Rates(ctx, actor.OrganizationID)
	if err != nil {
		return expense.Computation{}, err
	}
	c := expense.ComputeAmount(category, p, rates, nil)
	if c.Method == expense.MethodUnknownCategory {
		s.log.Warn("expense category has no amount rule, amount is zero",
			zap.String("category", category),
			zap.String("user_id", actor.UserID),
		)
	}
	if c.TotalDistanceKm != nil && !expense.WithinBounds(*c.TotalDistanceKm, expense.MaxTotalKm) {
		return expense.Computation{}, invalidf("total distance must not exceed %s km", expense.MaxTotalKm)
	}
	if !expense.WithinBounds(c.Amount, expense.MaxAmount) {
		return expense.Computation{}, invalidf("amount must not exceed %s", expense.MaxAmount)
	}
	return c, nil
}

func (s *ExpenseService) insert(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO expenses (id, organization_id, user_id, category, status, amount, travel_details,
			total_distance_km, rate_per_km, daily_allowance_type, date, end_date, description,
			edit_count, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $15, $15)
		RETURNING `+expenseColumns,
		e.ID, e.OrganizationID, e.UserID, e.Category, e.Status, e.Amount, e.TravelDetails,
		e.TotalDistanceKm, e.RatePerKm, e.DailyAllowanceType, e.Date, e.EndDate, e.Description,
		e.PaymentStatus, e.CreatedAt)
	created, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return created, nil
}

// CreateExpense records a pending claim with its amount derived from the
// organization's rates.
func (s *ExpenseService) CreateExpense(ctx context.Context, actor Actor, req ExpenseRequest) (*models.Expense, error) {
	dates, err := parseClaimDates(req.Date, req.EndDate)
	if err != nil {
		return nil, err
	}

	c, err := s.compute(ctx, actor, req.Category, expense.Payload{
		TravelDetails:      req.TravelDetails,
		DailyAllowanceType: req.DailyAllowanceType,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return s.insert(ctx, &models.Expense{
		ID:                 uuid.New().String(),
		OrganizationID:     actor.OrganizationID,
		UserID:             actor.UserID,
		Category:           req.Category,
		Status:             models.ExpenseStatusPending,
		Amount:             c.Amount,
		TravelDetails:      req.TravelDetails,
		TotalDistanceKm:    nullDecimal(c.TotalDistanceKm),
		RatePerKm:          nullDecimal(c.RatePerKm),
		DailyAllowanceType: optionalString(req.DailyAllowanceType),
		Date:               dates.date,
		EndDate:            dates.endDate,
		Description:        req.Description,
		PaymentStatus:      models.PaymentStatusUnpaid,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

// QuickAddExpense records a pending claim with a caller-supplied amount.
func (s *ExpenseService) QuickAddExpense(ctx context.Context, actor Actor, req QuickAddRequest) (*models.Expense, error) {
	if !req.Amount.IsPositive() {
		return nil, invalidf("amount must be greater than zero")
	}
	if !expense.WithinBounds(req.Amount, expense.MaxAmount) {
		return nil, invalidf("amount must not exceed %s", expense.MaxAmount)
	}
	dates, err := parseClaimDates(req.Date, nil)
	if err != nil {
		return nil, err
	}
	category := req.Category
	if category == "" {
		category = "other"
	}

	c := expense.ComputeAmount(category, expense.Payload{}, nil, &req.Amount)

	now := time.Now().UTC()
	return s.insert(ctx, &models.Expense{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		Category:       category,
		Status:         models.ExpenseStatusPending,
		Amount:         c.Amount,
		Date:           dates.date,
		Description:    req.Description,
		PaymentStatus:  models.PaymentStatusUnpaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *ExpenseService) loadExpense(ctx context.Context, orgID, expenseID string) (*models.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND organization_id = $2`, expenseID, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("expense %s not found", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	return e, nil
}

// EditExpense applies the single permitted edit to a pending claim and
// recomputes its amount. The update only lands while the row is still
// pending with no prior edit, so concurrent edits cannot both succeed.
func (s *ExpenseService) EditExpense(ctx context.Context, actor Actor, expenseID string, req ExpenseRequest) (*models.Expense, error) {
	current, err := s.loadExpense(ctx, actor.OrganizationID, expenseID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.UserID != actor.UserID:
		return nil, ErrNotExpenseOwner
	case current.EditCount >= 1:
		return nil, ErrEditLimitReached
	case current.Status != models.ExpenseStatusPending:
		return nil, ErrExpenseNotPending
	}

	dates, err := parseClaimDates(req.Date, req.EndDate)
	if err != nil {
		return nil, err
	}

	c, err := s.compute(ctx, actor, req.Category, expense.Payload{
		TravelDetails:      req.TravelDetails,
		DailyAllowanceType: req.DailyAllowanceType,
	})
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE expenses
		SET category = $1, amount = $2, travel_details = $3, total_distance_km = $4, rate_per_km = $5,
			daily_allowance_type = $6, date = $7, end_date = $8, description = $9,
			edit_count = edit_count + 1, updated_at = $10
		WHERE id = $11 AND organization_id = $12 AND user_id = $13 AND status = 'pending' AND edit_count = 0
		RETURNING `+expenseColumns,
		req.Category, c.Amount, req.TravelDetails, nullDecimal(c.TotalDistanceKm), nullDecimal(c.RatePerKm),
		optionalString(req.DailyAllowanceType), dates.date, dates.endDate, req.Description,
		time.Now().UTC(), expenseID, actor.OrganizationID, actor.UserID)

	updated, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEditLimitReached
	}
	if err != nil {
		return nil, fmt.Errorf("edit expense: %w", err)
	}

	s.audit.LogOperation(actor.OrganizationID, actor.UserID, expenseID, audit.EventExpenseEdited, map[string]string{
		"previous_amount": current.Amount.StringFixed(2),
		"amount":          updated.Amount.StringFixed(2),
	})
	return updated, nil
}

// ReviewExpense moves a pending claim to approved or rejected.
func (s *ExpenseService) ReviewExpense(ctx context.Context, actor Actor, expenseID, status string) (*models.Expense, error) {
	if status != models.ExpenseStatusApproved && status != models.ExpenseStatusRejected {
		return nil, invalidf("status must be approved or rejected")
	}

	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		UPDATE expenses SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3
		WHERE id = $4 AND organization_id = $5 AND status = 'pending'
		RETURNING `+expenseColumns,
		status, actor.UserID, now, expenseID, actor.OrganizationID)

	reviewed, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.loadExpense(ctx, actor.OrganizationID, expenseID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyReviewed
	}
	if err != nil {
		return nil, fmt.Errorf("review expense: %w", err)
	}

	s.audit.LogOperation(actor.OrganizationID, actor.UserID, expenseID, audit.EventExpenseReviewed, map[string]string{
		"status": status,
		"amount": reviewed.Amount.StringFixed(2),
	})
	return reviewed, nil
}

// GetExpense returns a claim visible to the caller.
func (s *ExpenseService) GetExpense(ctx context.Context, actor Actor, expenseID string) (*models.Expense, error) {
	e, err := s.loadExpense(ctx, actor.OrganizationID, expenseID)
	if err != nil {
		return nil, err
	}
	if e.UserID != actor.UserID && !models.CanReview(actor.Role) {
		return nil, notFoundf("expense %s not found", expenseID)
	}
	return e, nil
}

// ListExpenses returns a user's claims, newest first. Only reviewers may list
// another user's claims.
func (s *ExpenseService) ListExpenses(ctx context.Context, actor Actor, userID, status string) ([]models.Expense, error) {
	if userID == "" || !models.CanReview(actor.Role) {
		userID = actor.UserID
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE organization_id = $1 AND user_id = $2`
	args := []any{actor.OrganizationID, userID}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	return s.queryExpenses(ctx, query, args...)
}

func (s *ExpenseService) queryExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
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

// Create handles expense creation
// @Summary Create an expense
// @Description Submit a pending claim; the amount is derived from the category and organization rates
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "Expense"
// @Success 201 {object} models.Expense
// @Failure 400 {object} ErrorResponse
// @Router /expenses [post]
func (s *ExpenseService) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req ExpenseRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	e, err := s.CreateExpense(r.Context(), actor, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// QuickAdd handles manual-amount expense creation
// @Summary Quick-add an expense
// @Description Submit a pending claim with an explicit amount
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body QuickAddRequest true "Expense"
// @Success 201 {object} models.Expense
// @Failure 400 {object} ErrorResponse
// @Router /expenses/quick-add [post]
func (s *ExpenseService) QuickAdd(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req QuickAddRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	e, err := s.QuickAddExpense(r.Context(), actor, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Edit handles the one-time expense edit
// @Summary Edit an expense
// @Description Edit a pending claim. Each claim can be edited once; the amount is recomputed.
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param expenseId path string true "Expense ID"
// @Param request body ExpenseRequest true "Expense"
// @Success 200 {object} models.Expense
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not the owner"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already edited or not pending"
// @Router /expenses/{expenseId} [put]
func (s *ExpenseService) Edit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req ExpenseRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	e, err := s.EditExpense(r.Context(), actor, chi.URLParam(r, "expenseId"), req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Review handles expense approval
// @Summary Review an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param expenseId path string true "Expense ID"
// @Param request body ReviewRequest true "Decision"
// @Success 200 {object} models.Expense
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already reviewed"
// @Router /expenses/{expenseId}/review [post]
func (s *ExpenseService) Review(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	e, err := s.ReviewExpense(r.Context(), actor, chi.URLParam(r, "expenseId"), req.Status)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Get handles expense lookup
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param expenseId path string true "Expense ID"
// @Success 200 {object} models.Expense
// @Failure 404 {object} ErrorResponse
// @Router /expenses/{expenseId} [get]
func (s *ExpenseService) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	e, err := s.GetExpense(r.Context(), actor, chi.URLParam(r, "expenseId"))
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// List handles expense listing
// @Summary List expenses
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(pending, approved, rejected)
// @Param userId query string false "Another user's claims (managers and admins)"
// @Success 200 {array} models.Expense
// @Router /expenses [get]
func (s *ExpenseService) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	expenses, err := s.ListExpenses(r.Context(), actor, q.Get("userId"), q.Get("status"))
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}
