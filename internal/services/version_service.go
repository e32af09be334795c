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
	"github.com/fieldforce/backend/internal/metrics"
	"github.com/fieldforce/backend/internal/models"
	"github.com/fieldforce/backend/internal/version"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const latestVersionCacheTTL = 10 * time.Minute

func latestVersionCacheKey(orgID string) string {
	return fmt.Sprintf("app_version:latest:%s", orgID)
}

type VersionService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	audit     AuditLogger
	log       *zap.Logger
}

func NewVersionService(db *sql.DB, redisClient *redis.Client, auditLogger AuditLogger, log *zap.Logger) *VersionService {
	return &VersionService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		audit:     auditLogger,
		log:       log.Named("app_version"),
	}
}

// VersionCheckRequest reports the client's installed version
// @Description App version check
type VersionCheckRequest struct {
	CurrentVersion string `json:"currentVersion" validate:"required,appversion" example:"1.2.3"`
}

// PublishVersionRequest publishes a new client release
// @Description App version publication
type PublishVersionRequest struct {
	LatestVersion  string  `json:"latestVersion" validate:"required,appversion" example:"1.3.0"`
	MinimumVersion *string `json:"minimumVersion" validate:"omitempty,appversion" example:"1.0.0"`
	ForceUpdate    bool    `json:"forceUpdate"`
	ReleaseNotes   string  `json:"releaseNotes" validate:"max=2000"`
}

// Latest returns the organization's most recently published version config.
func (s *VersionService) Latest(ctx context.Context, orgID string) (*models.AppVersionConfig, error) {
	key := latestVersionCacheKey(orgID)
	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached models.AppVersionConfig
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("app version cache read failed", zap.Error(err))
		}
	}

	var cfg models.AppVersionConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT id, latest_version, minimum_version, force_update, release_notes, created_at
		FROM app_versions WHERE organization_id = $1
		ORDER BY created_at DESC LIMIT 1`, orgID,
	).Scan(&cfg.ID, &cfg.LatestVersion, &cfg.MinimumVersion, &cfg.ForceUpdate, &cfg.ReleaseNotes, &cfg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("no app version has been published")
	}
	if err != nil {
		return nil, fmt.Errorf("load app version: %w", err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(cfg); err == nil {
			if err := s.redis.Set(ctx, key, data, latestVersionCacheTTL).Err(); err != nil {
				s.log.Warn("app version cache write failed", zap.Error(err))
			}
		}
	}
	return &cfg, nil
}

// CheckVersion classifies the caller's version against the latest release
// and records the check. Every call bumps the user's check counter.
func (s *VersionService) CheckVersion(ctx context.Context, actor Actor, currentVersion string) (*models.VersionCheck, error) {
	current, err := version.Parse(currentVersion)
	if err != nil {
		return nil, invalid(err)
	}

	latestCfg, err := s.Latest(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	latest, err := version.Parse(latestCfg.LatestVersion)
	if err != nil {
		return nil, fmt.Errorf("published version: %w", err)
	}

	updateType := version.DetermineUpdateType(current, latest)
	check := &models.VersionCheck{
		UserID:         actor.UserID,
		OrganizationID: actor.OrganizationID,
		CurrentVersion: current.String(),
		LatestVersion:  latest.String(),
		UpdateRequired: updateType != version.UpdateNone,
		UpdateType:     string(updateType),
		ForceUpdate:    latestCfg.ForceUpdate,
		LastCheckedAt:  time.Now().UTC(),
		ReleaseNotes:   latestCfg.ReleaseNotes,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO version_checks (user_id, organization_id, current_version, latest_version,
			update_required, update_type, force_update, check_count, last_checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			current_version = EXCLUDED.current_version,
			latest_version = EXCLUDED.latest_version,
			update_required = EXCLUDED.update_required,
			update_type = EXCLUDED.update_type,
			force_update = EXCLUDED.force_update,
			check_count = version_checks.check_count + 1,
			last_checked_at = EXCLUDED.last_checked_at
		RETURNING check_count`,
		check.UserID, check.OrganizationID, check.CurrentVersion, check.LatestVersion,
		check.UpdateRequired, check.UpdateType, check.ForceUpdate, check.LastCheckedAt,
	).Scan(&check.CheckCount)
	if err != nil {
		return nil, fmt.Errorf("record version check: %w", err)
	}

	metrics.VersionChecks.WithLabelValues(check.UpdateType).Inc()
	return check, nil
}

// Publish stores a new release for the actor's organization. It becomes the
// latest immediately; other organizations are unaffected.
func (s *VersionService) Publish(ctx context.Context, actor Actor, req PublishVersionRequest) (*models.AppVersionConfig, error) {
	latest, err := version.Parse(req.LatestVersion)
	if err != nil {
		return nil, invalid(err)
	}

	var minimum *string
	if req.MinimumVersion != nil {
		floor, err := version.Parse(*req.MinimumVersion)
		if err != nil {
			return nil, invalid(err)
		}
		if version.Compare(floor, latest) > 0 {
			return nil, invalidf("minimumVersion %s is newer than latestVersion %s", floor, latest)
		}
		m := floor.String()
		minimum = &m
	}

	cfg := &models.AppVersionConfig{
		ID:             uuid.New().String(),
		LatestVersion:  latest.String(),
		MinimumVersion: minimum,
		ForceUpdate:    req.ForceUpdate,
		ReleaseNotes:   req.ReleaseNotes,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_versions (id, organization_id, latest_version, minimum_version, force_update, release_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cfg.ID, actor.OrganizationID, cfg.LatestVersion, cfg.MinimumVersion, cfg.ForceUpdate, cfg.ReleaseNotes, cfg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("publish app version: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, latestVersionCacheKey(actor.OrganizationID)).Err(); err != nil {
			s.log.Warn("app version cache invalidation failed", zap.Error(err))
		}
	}

	s.audit.LogOperation(actor.OrganizationID, actor.UserID, cfg.ID, audit.EventVersionPublished, map[string]string{
		"latest_version": cfg.LatestVersion,
		"force_update":   fmt.Sprint(cfg.ForceUpdate),
	})
	return cfg, nil
}

// Check handles client version checks
// @Summary Check app version
// @Description Compare the installed client version with the latest release
// @Tags app-version
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VersionCheckRequest true "Installed version"
// @Success 200 {object} models.VersionCheck
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "No release published"
// @Router /app-version/check [post]
func (s *VersionService) Check(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req VersionCheckRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	check, err := s.CheckVersion(r.Context(), actor, req.CurrentVersion)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// GetLatest handles latest release lookup
// @Summary Latest app version
// @Description The most recently published client release for the caller's organization
// @Tags app-version
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AppVersionConfig
// @Failure 404 {object} ErrorResponse
// @Router /app-version/latest [get]
func (s *VersionService) GetLatest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	cfg, err := s.Latest(r.Context(), actor.OrganizationID)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PublishVersion handles release publication
// @Summary Publish app version
// @Description Publish a new client release (admin only)
// @Tags app-version
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PublishVersionRequest true "Release"
// @Success 201 {object} models.AppVersionConfig
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /app-version [post]
func (s *VersionService) PublishVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req PublishVersionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	cfg, err := s.Publish(r.Context(), actor, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}
