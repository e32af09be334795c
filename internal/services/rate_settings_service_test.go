package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateSettingsService_GetSettings(t *testing.T) {
	t.Run("defaults when never saved", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		svc := NewRateSettingsService(db, nil, testRates(), &MockAuditLogger{}, zap.NewNop())

		sqlMock.ExpectQuery("SELECT rate_per_km, head_office_amount, outside_head_office_amount").
			WithArgs(testOrgID).
			WillReturnRows(sqlmock.NewRows([]string{"rate_per_km", "head_office_amount", "outside_head_office_amount", "updated_by", "updated_at"}))

		settings, err := svc.GetSettings(t.Context(), testOrgID)
		require.NoError(t, err)
		assert.True(t, settings.IsDefault)
		assert.Equal(t, "2.40", settings.RatePerKm.StringFixed(2))
		assert.Equal(t, "150", settings.HeadOfficeAmount.String())
		assert.Equal(t, "175", settings.OutsideHeadOfficeAmount.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("saved rates are cached", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		redisClient, redisMock := redismock.NewClientMock()
		svc := NewRateSettingsService(db, redisClient, testRates(), &MockAuditLogger{}, zap.NewNop())

		updatedAt := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		sqlMock.ExpectQuery("SELECT rate_per_km, head_office_amount, outside_head_office_amount").
			WillReturnRows(sqlmock.NewRows([]string{"rate_per_km", "head_office_amount", "outside_head_office_amount", "updated_by", "updated_at"}).
				AddRow("3.00", "200", "250", testManagerID, updatedAt))

		updatedBy := testManagerID
		expected := models.RateSettings{
			OrganizationID: testOrgID,
			Rates: models.Rates{
				RatePerKm:               decimal.RequireFromString("3.00"),
				HeadOfficeAmount:        decimal.RequireFromString("200"),
				OutsideHeadOfficeAmount: decimal.RequireFromString("250"),
			},
			UpdatedBy: &updatedBy,
			UpdatedAt: &updatedAt,
		}
		data, err := json.Marshal(expected)
		require.NoError(t, err)

		redisMock.ExpectGet("rates:" + testOrgID).RedisNil()
		redisMock.ExpectSet("rates:"+testOrgID, data, rateSettingsCacheTTL).SetVal("OK")

		settings, err := svc.GetSettings(t.Context(), testOrgID)
		require.NoError(t, err)
		assert.False(t, settings.IsDefault)
		assert.Equal(t, "3", settings.RatePerKm.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the database", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		redisClient, redisMock := redismock.NewClientMock()
		svc := NewRateSettingsService(db, redisClient, testRates(), &MockAuditLogger{}, zap.NewNop())

		redisMock.ExpectGet("rates:" + testOrgID).
			SetVal(`{"organizationId":"` + testOrgID + `","ratePerKm":"4","headOfficeAmount":"100","outsideHeadOfficeAmount":"120","isDefault":false}`)

		rates, err := svc.Rates(t.Context(), testOrgID)
		require.NoError(t, err)
		assert.Equal(t, "4", rates.RatePerKm.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestRateSettingsService_UpdateRates(t *testing.T) {
	db, sqlMock := newMockDB(t)
	redisClient, redisMock := redismock.NewClientMock()
	auditLogger := &MockAuditLogger{}
	svc := NewRateSettingsService(db, redisClient, testRates(), auditLogger, zap.NewNop())

	t.Run("upserts and invalidates the cache", func(t *testing.T) {
		sqlMock.ExpectExec("INSERT INTO rate_settings").
			WithArgs(testOrgID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), testManagerID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		redisMock.ExpectDel("rates:" + testOrgID).SetVal(1)
		auditLogger.On("LogOperation", testOrgID, testManagerID, testOrgID, audit.EventRatesUpdated, mock.Anything).Return()

		body := []byte(`{"ratePerKm":3,"headOfficeAmount":200,"outsideHeadOfficeAmount":250}`)
		r := asActor(httptest.NewRequest(http.MethodPut, "/settings/rates", bytes.NewReader(body)), manager)
		w := httptest.NewRecorder()

		svc.UpdateRates(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var settings models.RateSettings
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
		assert.Equal(t, "3", settings.RatePerKm.String())
		assert.False(t, settings.IsDefault)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		auditLogger.AssertExpectations(t)
	})

	t.Run("missing rate", func(t *testing.T) {
		body := []byte(`{"ratePerKm":3,"headOfficeAmount":200}`)
		r := asActor(httptest.NewRequest(http.MethodPut, "/settings/rates", bytes.NewReader(body)), manager)
		w := httptest.NewRecorder()

		svc.UpdateRates(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative rate", func(t *testing.T) {
		body := []byte(`{"ratePerKm":-1,"headOfficeAmount":200,"outsideHeadOfficeAmount":250}`)
		r := asActor(httptest.NewRequest(http.MethodPut, "/settings/rates", bytes.NewReader(body)), manager)
		w := httptest.NewRecorder()

		svc.UpdateRates(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate beyond the column range", func(t *testing.T) {
		for _, rate := range []string{`1e50000000`, `100000000`} {
			body := []byte(`{"ratePerKm":` + rate + `,"headOfficeAmount":200,"outsideHeadOfficeAmount":250}`)
			r := asActor(httptest.NewRequest(http.MethodPut, "/settings/rates", bytes.NewReader(body)), manager)
			w := httptest.NewRecorder()

			svc.UpdateRates(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code, rate)
		}
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
