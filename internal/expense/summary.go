package expense

import (
	"sort"

	"github.com/fieldforce/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize groups approved expenses by the month of their date. Months are
// returned newest first.
func Summarize(expenses []models.Expense) []models.MonthlyPaymentSummary {
	byMonth := make(map[string]*models.MonthlyPaymentSummary)

	for _, e := range expenses {
		if e.Status != models.ExpenseStatusApproved {
			continue
		}

		key := MonthYearOf(e.Date)
		s, ok := byMonth[key]
		if !ok {
			s = &models.MonthlyPaymentSummary{
				MonthYear:    key,
				TotalAmount:  decimal.Zero,
				PaidAmount:   decimal.Zero,
				UnpaidAmount: decimal.Zero,
			}
			byMonth[key] = s
		}

		s.TotalAmount = s.TotalAmount.Add(e.Amount)
		if e.PaymentStatus == models.PaymentStatusPaid {
			s.PaidAmount = s.PaidAmount.Add(e.Amount)
			s.PaidCount++
			if e.PaymentDate != nil && (s.PaymentDate == nil || e.PaymentDate.After(*s.PaymentDate)) {
				pd := *e.PaymentDate
				s.PaymentDate = &pd
			}
		} else {
			s.UnpaidAmount = s.UnpaidAmount.Add(e.Amount)
			s.UnpaidCount++
		}
	}

	out := make([]models.MonthlyPaymentSummary, 0, len(byMonth))
	for _, s := range byMonth {
		switch {
		case s.UnpaidCount == 0:
			s.PaymentStatus = models.MonthStatusPaid
		case s.PaidCount == 0:
			s.PaymentStatus = models.MonthStatusUnpaid
		default:
			s.PaymentStatus = models.MonthStatusPartial
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MonthYear > out[j].MonthYear })
	return out
}
