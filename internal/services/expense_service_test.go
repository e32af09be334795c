package services

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testExpenseID = "3e2d1c0b-9a8f-4e7d-8c6b-5a4f3e2d1c0b"

var expenseCols = []string{"id", "organization_id", "user_id", "category", "status", "amount", "travel_details",
	"total_distance_km", "rate_per_km", "daily_allowance_type", "date", "end_date", "description", "edit_count",
	"payment_status", "payment_date", "payment_month_year", "transaction_id", "payment_note", "reviewed_by",
	"reviewed_at", "created_at", "updated_at"}

type expenseFixture struct {
	userID    string
	category  string
	status    string
	amount    string
	editCount int
	date      time.Time
	payment   string
}

func (f expenseFixture) values() []driver.Value {
	if f.userID == "" {
		f.userID = testUserID
	}
	if f.category == "" {
		f.category = models.CategoryTravel
	}
	if f.status == "" {
		f.status = models.ExpenseStatusPending
	}
	if f.amount == "" {
		f.amount = "36.00"
	}
	if f.date.IsZero() {
		f.date = time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)
	}
	if f.payment == "" {
		f.payment = models.PaymentStatusUnpaid
	}
	now := time.Now()
	return []driver.Value{testExpenseID, testOrgID, f.userID, f.category, f.status, f.amount,
		[]byte(`[{"km":"15"}]`), "15", "2.40", nil, f.date, nil, "client visit", int64(f.editCount),
		f.payment, nil, nil, nil, nil, nil, nil, now, now}
}

func expenseRows(fixtures ...expenseFixture) *sqlmock.Rows {
	rows := sqlmock.NewRows(expenseCols)
	for _, f := range fixtures {
		rows.AddRow(f.values()...)
	}
	return rows
}

func testRates() *models.Rates {
	r := expense.DefaultRates()
	return &r
}

func newTestExpenseService(t *testing.T) (*ExpenseService, sqlmock.Sqlmock, *MockAuditLogger) {
	db, sqlMock := newMockDB(t)
	auditLogger := &MockAuditLogger{}
	return NewExpenseService(db, fakeRates{rates: testRates()}, auditLogger, zap.NewNop()), sqlMock, auditLogger
}

func travelRequest(km ...string) ExpenseRequest {
	legs := models.TravelDetails{}
	for _, k := range km {
		legs = append(legs, models.TravelLeg{Km: decimal.RequireFromString(k)})
	}
	return ExpenseRequest{Category: models.CategoryTravel, TravelDetails: legs, Date: "2024-02-14", Description: "client visit"}
}

func TestExpenseService_CreateExpense(t *testing.T) {
	t.Run("travel amount is distance times rate", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("INSERT INTO expenses").
			WithArgs(sqlmock.AnyArg(), testOrgID, testUserID, models.CategoryTravel, models.ExpenseStatusPending,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), "client visit", models.PaymentStatusUnpaid, sqlmock.AnyArg()).
			WillReturnRows(expenseRows(expenseFixture{}))

		e, err := svc.CreateExpense(t.Context(), employee, travelRequest("10", "5"))
		require.NoError(t, err)
		assert.Equal(t, "36.00", e.Amount.StringFixed(2))
		assert.Equal(t, 0, e.EditCount)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("end date before date", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)
		req := travelRequest("10")
		end := "2024-02-01"
		req.EndDate = &end

		_, err := svc.CreateExpense(t.Context(), employee, req)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("km beyond a plausible leg is rejected before any arithmetic", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		for _, km := range []string{"1e50000000", "10000.01", "-1"} {
			_, err := svc.CreateExpense(t.Context(), employee, travelRequest("10", km))
			assert.Equal(t, KindValidation, KindOf(err), km)
		}
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("amount that would overflow the column is rejected", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		rates := &models.Rates{RatePerKm: decimal.RequireFromString("99999999.99")}
		svc := NewExpenseService(db, fakeRates{rates: rates}, &MockAuditLogger{}, zap.NewNop())

		_, err := svc.CreateExpense(t.Context(), employee, travelRequest("10000"))
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("rates lookup failure", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		svc := NewExpenseService(db, fakeRates{err: errors.New("redis down")}, &MockAuditLogger{}, zap.NewNop())

		_, err := svc.CreateExpense(t.Context(), employee, travelRequest("10"))
		assert.Error(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestExpenseService_QuickAddExpense(t *testing.T) {
	svc, sqlMock, _ := newTestExpenseService(t)

	_, err := svc.QuickAddExpense(t.Context(), employee, QuickAddRequest{Amount: decimal.Zero, Date: "2024-02-14"})
	assert.Equal(t, KindValidation, KindOf(err))

	for _, amount := range []string{"1e50000000", "10000000000"} {
		_, err = svc.QuickAddExpense(t.Context(), employee, QuickAddRequest{Amount: decimal.RequireFromString(amount), Date: "2024-02-14"})
		assert.Equal(t, KindValidation, KindOf(err), amount)
	}

	sqlMock.ExpectQuery("INSERT INTO expenses").
		WithArgs(sqlmock.AnyArg(), testOrgID, testUserID, "other", models.ExpenseStatusPending,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(expenseRows(expenseFixture{category: "other", amount: "499.99"}))

	e, err := svc.QuickAddExpense(t.Context(), employee, QuickAddRequest{Amount: decimal.RequireFromString("499.99"), Date: "2024-02-14"})
	require.NoError(t, err)
	assert.Equal(t, "499.99", e.Amount.StringFixed(2))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestExpenseService_EditExpense(t *testing.T) {
	t.Run("first edit recomputes the amount", func(t *testing.T) {
		svc, sqlMock, auditLogger := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WithArgs(testExpenseID, testOrgID).
			WillReturnRows(expenseRows(expenseFixture{}))
		sqlMock.ExpectQuery("UPDATE expenses").
			WillReturnRows(expenseRows(expenseFixture{amount: "48.00", editCount: 1}))
		auditLogger.On("LogOperation", testOrgID, testUserID, testExpenseID, audit.EventExpenseEdited,
			map[string]string{"previous_amount": "36.00", "amount": "48.00"}).Return()

		e, err := svc.EditExpense(t.Context(), employee, testExpenseID, travelRequest("20"))
		require.NoError(t, err)
		assert.Equal(t, 1, e.EditCount)
		assert.Equal(t, "48.00", e.Amount.StringFixed(2))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		auditLogger.AssertExpectations(t)
	})

	t.Run("second edit is refused without writing", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{editCount: 1}))

		_, err := svc.EditExpense(t.Context(), employee, testExpenseID, travelRequest("20"))
		assert.True(t, errors.Is(err, ErrEditLimitReached))
		assert.Equal(t, KindPreconditionFailed, KindOf(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("only the owner may edit", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{}))

		_, err := svc.EditExpense(t.Context(), manager, testExpenseID, travelRequest("20"))
		assert.True(t, errors.Is(err, ErrNotExpenseOwner))
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("reviewed claims cannot be edited", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{status: models.ExpenseStatusApproved}))

		_, err := svc.EditExpense(t.Context(), employee, testExpenseID, travelRequest("20"))
		assert.True(t, errors.Is(err, ErrExpenseNotPending))
	})

	t.Run("losing a concurrent edit reports the limit", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{}))
		sqlMock.ExpectQuery("UPDATE expenses").
			WillReturnRows(sqlmock.NewRows(expenseCols))

		_, err := svc.EditExpense(t.Context(), employee, testExpenseID, travelRequest("20"))
		assert.True(t, errors.Is(err, ErrEditLimitReached))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown expense", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(sqlmock.NewRows(expenseCols))

		_, err := svc.EditExpense(t.Context(), employee, testExpenseID, travelRequest("20"))
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestExpenseService_ReviewExpense(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		svc, sqlMock, auditLogger := newTestExpenseService(t)

		sqlMock.ExpectQuery("UPDATE expenses SET status").
			WithArgs(models.ExpenseStatusApproved, testManagerID, sqlmock.AnyArg(), testExpenseID, testOrgID).
			WillReturnRows(expenseRows(expenseFixture{status: models.ExpenseStatusApproved}))
		auditLogger.On("LogOperation", testOrgID, testManagerID, testExpenseID, audit.EventExpenseReviewed, mock.Anything).Return()

		e, err := svc.ReviewExpense(t.Context(), manager, testExpenseID, models.ExpenseStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, models.ExpenseStatusApproved, e.Status)
		auditLogger.AssertExpectations(t)
	})

	t.Run("already reviewed", func(t *testing.T) {
		svc, sqlMock, _ := newTestExpenseService(t)

		sqlMock.ExpectQuery("UPDATE expenses SET status").
			WillReturnRows(sqlmock.NewRows(expenseCols))
		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{status: models.ExpenseStatusRejected}))

		_, err := svc.ReviewExpense(t.Context(), manager, testExpenseID, models.ExpenseStatusApproved)
		assert.True(t, errors.Is(err, ErrAlreadyReviewed))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("bad status", func(t *testing.T) {
		svc, _, _ := newTestExpenseService(t)

		_, err := svc.ReviewExpense(t.Context(), manager, testExpenseID, "paid")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestExpenseService_Handlers(t *testing.T) {
	svc, sqlMock, _ := newTestExpenseService(t)

	router := chi.NewRouter()
	router.Post("/expenses", svc.Create)
	router.Post("/expenses/quick-add", svc.QuickAdd)
	router.Put("/expenses/{expenseId}", svc.Edit)

	t.Run("create with lenient km", func(t *testing.T) {
		sqlMock.ExpectQuery("INSERT INTO expenses").
			WillReturnRows(expenseRows(expenseFixture{amount: "34.80"}))

		body := []byte(`{"category":"travel","travelDetails":[{"km":"10"},{"km":4.5},{"km":"abc"},{}],"date":"2024-02-14"}`)
		r := asActor(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body)), employee)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		body := []byte(`{"category":"travel","date":"2024-02-14","editCount":0}`)
		r := asActor(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body)), employee)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("claims cannot set their own amount", func(t *testing.T) {
		body := []byte(`{"category":"travel","travelDetails":[{"km":"1"}],"date":"2024-02-14","amount":99999}`)
		r := asActor(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body)), employee)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("exponent km is 400", func(t *testing.T) {
		body := []byte(`{"category":"travel","travelDetails":[{"km":"1e50000000"}],"date":"2024-02-14"}`)
		r := asActor(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body)), employee)
		w := httptest.NewRecorder()

		start := time.Now()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("quick-add amount beyond the column is 400", func(t *testing.T) {
		for _, amount := range []string{`1e50000000`, `10000000000`} {
			body := []byte(`{"amount":` + amount + `,"date":"2024-02-14"}`)
			r := asActor(httptest.NewRequest(http.MethodPost, "/expenses/quick-add", bytes.NewReader(body)), employee)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code, amount)
		}
	})

	t.Run("second edit is 409", func(t *testing.T) {
		sqlMock.ExpectQuery("SELECT (.+) FROM expenses WHERE id").
			WillReturnRows(expenseRows(expenseFixture{editCount: 1}))

		body := []byte(`{"category":"travel","travelDetails":[{"km":"20"}],"date":"2024-02-14"}`)
		r := asActor(httptest.NewRequest(http.MethodPut, "/expenses/"+testExpenseID, bytes.NewReader(body)), employee)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrEditLimitReached.Error(), resp.Error)
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
