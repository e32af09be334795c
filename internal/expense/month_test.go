package expense

import (
	"testing"
	"time"

	"github.com/fieldforce/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMonthWindow(t *testing.T) {
	t.Run("leap february", func(t *testing.T) {
		start, end, err := MonthWindow("2024-02")
		require.NoError(t, err)
		assert.Equal(t, day("2024-02-01"), start)
		assert.Equal(t, day("2024-02-29"), end)
	})

	t.Run("december", func(t *testing.T) {
		_, end, err := MonthWindow("2023-12")
		require.NoError(t, err)
		assert.Equal(t, day("2023-12-31"), end)
	})

	t.Run("invalid formats", func(t *testing.T) {
		for _, s := range []string{"2024-13", "2024-2", "24-02", "2024/02", "", "2024-02-01"} {
			_, _, err := MonthWindow(s)
			assert.ErrorIs(t, err, ErrInvalidMonthYear, s)
		}
	})
}

func TestSummarize(t *testing.T) {
	paidOn := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	paidLater := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	expenses := []models.Expense{
		{Status: models.ExpenseStatusApproved, Date: day("2024-02-03"), Amount: dec("100"), PaymentStatus: models.PaymentStatusPaid, PaymentDate: &paidOn},
		{Status: models.ExpenseStatusApproved, Date: day("2024-02-20"), Amount: dec("50.50"), PaymentStatus: models.PaymentStatusPaid, PaymentDate: &paidLater},
		{Status: models.ExpenseStatusApproved, Date: day("2024-03-01"), Amount: dec("36"), PaymentStatus: models.PaymentStatusPaid, PaymentDate: &paidOn},
		{Status: models.ExpenseStatusApproved, Date: day("2024-03-15"), Amount: dec("175"), PaymentStatus: models.PaymentStatusUnpaid},
		{Status: models.ExpenseStatusApproved, Date: day("2024-04-02"), Amount: dec("150"), PaymentStatus: models.PaymentStatusUnpaid},
		{Status: models.ExpenseStatusPending, Date: day("2024-04-03"), Amount: dec("999"), PaymentStatus: models.PaymentStatusUnpaid},
		{Status: models.ExpenseStatusRejected, Date: day("2024-02-04"), Amount: dec("999"), PaymentStatus: models.PaymentStatusUnpaid},
	}

	got := Summarize(expenses)
	require.Len(t, got, 3)

	assert.Equal(t, "2024-04", got[0].MonthYear)
	assert.Equal(t, models.MonthStatusUnpaid, got[0].PaymentStatus)
	assert.True(t, got[0].TotalAmount.Equal(dec("150")))
	assert.Equal(t, 1, got[0].UnpaidCount)
	assert.Nil(t, got[0].PaymentDate)

	assert.Equal(t, "2024-03", got[1].MonthYear)
	assert.Equal(t, models.MonthStatusPartial, got[1].PaymentStatus)
	assert.True(t, got[1].PaidAmount.Equal(dec("36")))
	assert.True(t, got[1].UnpaidAmount.Equal(dec("175")))
	assert.Equal(t, 1, got[1].PaidCount)
	assert.Equal(t, 1, got[1].UnpaidCount)

	assert.Equal(t, "2024-02", got[2].MonthYear)
	assert.Equal(t, models.MonthStatusPaid, got[2].PaymentStatus)
	assert.True(t, got[2].TotalAmount.Equal(dec("150.50")))
	assert.Equal(t, 2, got[2].PaidCount)
	require.NotNil(t, got[2].PaymentDate)
	assert.Equal(t, paidLater, *got[2].PaymentDate)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
