package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/models"
	"github.com/fieldforce/backend/internal/services"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet  = "Summary"
	expensesSheet = "Expenses"
)

var (
	summaryHeader  = []any{"Month", "Total", "Paid", "Unpaid", "Paid claims", "Unpaid claims", "Status", "Payment date"}
	expensesHeader = []any{"Date", "End date", "Category", "Description", "Distance (km)", "Amount", "Payment status", "Payment month", "Transaction"}
)

// ExportHandler renders payment summaries as spreadsheets.
type ExportHandler struct {
	payments *services.PaymentService
	log      *zap.Logger
}

func NewExportHandler(payments *services.PaymentService, log *zap.Logger) *ExportHandler {
	return &ExportHandler{
		payments: payments,
		log:      log.Named("export"),
	}
}

// ExportSummary handles the spreadsheet export
// @Summary Export payment summary
// @Description Approved claims and their monthly payment summary as an XLSX workbook
// @Tags payments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param userId query string false "Another user's summary (managers and admins)"
// @Success 200 {file} binary
// @Failure 401 {object} services.ErrorResponse
// @Router /payments/summary/export [get]
func (h *ExportHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := services.ActorFromRequest(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	userID := services.SummaryUserID(r, actor)
	expenses, err := h.payments.ApprovedExpenses(r.Context(), actor.OrganizationID, userID)
	if err != nil {
		services.WriteError(w, h.log, err)
		return
	}

	f, err := h.BuildWorkbook(expense.Summarize(expenses), expenses)
	if err != nil {
		services.WriteError(w, h.log, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payment-summary-%s.xlsx"`, userID))
	if err := f.Write(w); err != nil {
		h.log.Error("workbook write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// BuildWorkbook lays out one row per month on the Summary sheet and one row
// per claim on the Expenses sheet.
func (h *ExportHandler) BuildWorkbook(summary []models.MonthlyPaymentSummary, expenses []models.Expense) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(expensesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	h.setRow(f, summarySheet, 1, summaryHeader)
	for i, m := range summary {
		h.setRow(f, summarySheet, i+2, []any{
			m.MonthYear,
			m.TotalAmount.InexactFloat64(),
			m.PaidAmount.InexactFloat64(),
			m.UnpaidAmount.InexactFloat64(),
			m.PaidCount,
			m.UnpaidCount,
			m.PaymentStatus,
			formatDate(m.PaymentDate),
		})
	}

	h.setRow(f, expensesSheet, 1, expensesHeader)
	for i, e := range expenses {
		distance := ""
		if e.TotalDistanceKm.Valid {
			distance = e.TotalDistanceKm.Decimal.StringFixed(1)
		}
		h.setRow(f, expensesSheet, i+2, []any{
			e.Date.Format("2006-01-02"),
			formatDate(e.EndDate),
			e.Category,
			e.Description,
			distance,
			e.Amount.InexactFloat64(),
			e.PaymentStatus,
			deref(e.PaymentMonthYear),
			deref(e.TransactionID),
		})
	}

	return f, nil
}

// setRow writes a row starting at column A
func (h *ExportHandler) setRow(f *excelize.File, sheet string, row int, values []any) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		h.log.Warn("Invalid row", zap.Int("row", row), zap.Error(err))
		return
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		h.log.Warn("Failed to set row",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
