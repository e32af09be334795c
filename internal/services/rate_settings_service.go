package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/expense"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const rateSettingsCacheTTL = 30 * time.Minute

type RateSettingsService struct {
	db        *sql.DB
	redis     *redis.Client
	defaults  *models.Rates
	validator *ValidationHelper
	audit     AuditLogger
	log       *zap.Logger
}

func NewRateSettingsService(db *sql.DB, redisClient *redis.Client, defaults *models.Rates, auditLogger AuditLogger, log *zap.Logger) *RateSettingsService {
	return &RateSettingsService{
		db:        db,
		redis:     redisClient,
		defaults:  defaults,
		validator: NewValidationHelper(),
		audit:     auditLogger,
		log:       log.Named("rates"),
	}
}

// UpdateRatesRequest replaces all three rates at once
// @Description Rate settings update
type UpdateRatesRequest struct {
	RatePerKm               *decimal.Decimal `json:"ratePerKm" swaggertype:"number" example:"2.40"`
	HeadOfficeAmount        *decimal.Decimal `json:"headOfficeAmount" swaggertype:"number" example:"150"`
	OutsideHeadOfficeAmount *decimal.Decimal `json:"outsideHeadOfficeAmount" swaggertype:"number" example:"175"`
}

func (r UpdateRatesRequest) rates() (models.Rates, error) {
	if r.RatePerKm == nil || r.HeadOfficeAmount == nil || r.OutsideHeadOfficeAmount == nil {
		return models.Rates{}, invalidf("ratePerKm, headOfficeAmount and outsideHeadOfficeAmount are all required")
	}
	for _, v := range []decimal.Decimal{*r.RatePerKm, *r.HeadOfficeAmount, *r.OutsideHeadOfficeAmount} {
		if !expense.WithinBounds(v, expense.MaxRate) {
			return models.Rates{}, invalidf("rates must be between 0 and %s", expense.MaxRate)
		}
	}
	return models.Rates{
		RatePerKm:               *r.RatePerKm,
		HeadOfficeAmount:        *r.HeadOfficeAmount,
		OutsideHeadOfficeAmount: *r.OutsideHeadOfficeAmount,
	}, nil
}

func rateSettingsCacheKey(orgID string) string {
	return fmt.Sprintf("rates:%s", orgID)
}

// GetSettings returns the organization's saved rates, or the configured
// defaults when none were saved.
func (s *RateSettingsService) GetSettings(ctx context.Context, orgID string) (*models.RateSettings, error) {
	key := rateSettingsCacheKey(orgID)
	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached models.RateSettings
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("rate settings cache read failed", zap.String("organization_id", orgID), zap.Error(err))
		}
	}

	settings := &models.RateSettings{OrganizationID: orgID}
	err := s.db.QueryRowContext(ctx, `
		SELECT rate_per_km, head_office_amount, outside_head_office_amount, updated_by, updated_at
		FROM rate_settings WHERE organization_id = $1`, orgID,
	).Scan(&settings.RatePerKm, &settings.HeadOfficeAmount, &settings.OutsideHeadOfficeAmount, &settings.UpdatedBy, &settings.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		settings.Rates = *s.defaults
		settings.IsDefault = true
	case err != nil:
		return nil, fmt.Errorf("load rate settings: %w", err)
	}

	s.cache(ctx, key, settings)
	return settings, nil
}

// Rates is the lookup used by expense computation.
func (s *RateSettingsService) Rates(ctx context.Context, orgID string) (*models.Rates, error) {
	settings, err := s.GetSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &settings.Rates, nil
}

// UpdateSettings creates the organization's row on first write and replaces
// every rate afterwards.
func (s *RateSettingsService) UpdateSettings(ctx context.Context, actor Actor, rates models.Rates) (*models.RateSettings, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_settings (organization_id, rate_per_km, head_office_amount, outside_head_office_amount, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id) DO UPDATE SET
			rate_per_km = EXCLUDED.rate_per_km,
			head_office_amount = EXCLUDED.head_office_amount,
			outside_head_office_amount = EXCLUDED.outside_head_office_amount,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`,
		actor.OrganizationID, rates.RatePerKm, rates.HeadOfficeAmount, rates.OutsideHeadOfficeAmount, actor.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("save rate settings: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, rateSettingsCacheKey(actor.OrganizationID)).Err(); err != nil {
			s.log.Warn("rate settings cache invalidation failed", zap.String("organization_id", actor.OrganizationID), zap.Error(err))
		}
	}

	s.audit.LogOperation(actor.OrganizationID, actor.UserID, actor.OrganizationID, audit.EventRatesUpdated, map[string]string{
		"rate_per_km":                rates.RatePerKm.String(),
		"head_office_amount":         rates.HeadOfficeAmount.String(),
		"outside_head_office_amount": rates.OutsideHeadOfficeAmount.String(),
	})

	updatedBy := actor.UserID
	return &models.RateSettings{
		OrganizationID: actor.OrganizationID,
		Rates:          rates,
		UpdatedBy:      &updatedBy,
		UpdatedAt:      &now,
	}, nil
}

func (s *RateSettingsService) cache(ctx context.Context, key string, settings *models.RateSettings) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, rateSettingsCacheTTL).Err(); err != nil {
		s.log.Warn("rate settings cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetRates handles rate lookup
// @Summary Get rate settings
// @Description Current reimbursement rates for the caller's organization; defaults when never saved
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.RateSettings
// @Router /settings/rates [get]
func (s *RateSettingsService) GetRates(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	settings, err := s.GetSettings(r.Context(), actor.OrganizationID)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateRates handles rate updates
// @Summary Update rate settings
// @Description Replace the organization's reimbursement rates
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateRatesRequest true "Rates"
// @Success 200 {object} models.RateSettings
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /settings/rates [put]
func (s *RateSettingsService) UpdateRates(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req UpdateRatesRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	rates, err := req.rates()
	if err != nil {
		WriteError(w, s.log, err)
		return
	}

	settings, err := s.UpdateSettings(r.Context(), actor, rates)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
