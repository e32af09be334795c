package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/config"
	"github.com/fieldforce/backend/internal/geo"
	"github.com/fieldforce/backend/internal/metrics"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const visitColumns = `id, organization_id, target_id, user_id, visit_date, notes, confirmed, latitude, longitude, confirmed_at, created_at, updated_at`

type VisitService struct {
	db           *sql.DB
	validator    *ValidationHelper
	audit        AuditLogger
	log          *zap.Logger
	radiusMeters float64
}

func NewVisitService(db *sql.DB, auditLogger AuditLogger, log *zap.Logger, geofence *config.GeofenceConfig) *VisitService {
	return &VisitService{
		db:           db,
		validator:    NewValidationHelper(),
		audit:        auditLogger,
		log:          log.Named("visits"),
		radiusMeters: geofence.RadiusMeters,
	}
}

// ScheduleVisitRequest represents a new pending visit
// @Description Visit scheduling request
type ScheduleVisitRequest struct {
	TargetID string `json:"targetId" validate:"required,uuid" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02" example:"2024-02-14"`
	Notes    string `json:"notes" validate:"max=2000"`
}

// ConfirmVisitRequest carries the caller's position
// @Description Visit confirmation request
type ConfirmVisitRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude" example:"12.9716"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude" example:"77.5946"`
}

// TargetLocationRequest sets a doctor, chemist or stockist location
// @Description Target location request
type TargetLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude" example:"12.9716"`
	Longitude *float64 `json:"longitude" validate:"required,longitude" example:"77.5946"`
}

// CreateTargetRequest adds a doctor, chemist or stockist. The location is
// optional but must be given as a pair.
// @Description Target creation request
type CreateTargetRequest struct {
	Name      string   `json:"name" validate:"required,max=200" example:"Dr. Mehta"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude" example:"12.9716"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude" example:"77.5946"`
}

// ConfirmVisitResponse is returned for both confirmations and soft rejections
type ConfirmVisitResponse struct {
	Success bool `json:"success"`
	*models.VisitConfirmation
}

func scanVisit(row rowScanner, kind models.VisitKind) (*models.Visit, error) {
	v := models.Visit{Kind: kind}
	err := row.Scan(&v.ID, &v.OrganizationID, &v.TargetID, &v.UserID, &v.VisitDate, &v.Notes,
		&v.Confirmed, &v.Latitude, &v.Longitude, &v.ConfirmedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VisitService) loadVisit(ctx context.Context, orgID string, kind models.VisitKind, visitID string) (*models.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND organization_id = $2`, visitColumns, kind.VisitTable())
	v, err := scanVisit(s.db.QueryRowContext(ctx, query, visitID, orgID), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("%s visit %s not found", kind, visitID)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s visit: %w", kind, err)
	}
	return v, nil
}

func (s *VisitService) loadTarget(ctx context.Context, orgID string, kind models.VisitKind, targetID string) (*models.Target, error) {
	query := fmt.Sprintf(`SELECT id, organization_id, name, latitude, longitude FROM %s WHERE id = $1 AND organization_id = $2`, kind.TargetTable())
	t := models.Target{Kind: kind}
	err := s.db.QueryRowContext(ctx, query, targetID, orgID).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Latitude, &t.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("%s %s not found", kind, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return &t, nil
}

// ConfirmVisit confirms a visit when the caller stands within the geofence of
// the target. A caller outside the radius gets a soft rejection and the visit
// is left untouched. Targets without a stored location are confirmed without
// a distance check.
func (s *VisitService) ConfirmVisit(ctx context.Context, actor Actor, kind models.VisitKind, visitID string, lat, lng *float64) (*models.VisitConfirmation, error) {
	if (lat == nil) != (lng == nil) {
		return nil, invalidf("latitude and longitude must be supplied together")
	}

	visit, err := s.loadVisit(ctx, actor.OrganizationID, kind, visitID)
	if err != nil {
		return nil, err
	}

	target, err := s.loadTarget(ctx, actor.OrganizationID, kind, visit.TargetID)
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeConfirmed
	if loc, ok := target.Location(); ok {
		if lat == nil {
			return nil, ErrCoordinatesRequired
		}

		within, d := geo.Within(
			geo.Point{Latitude: *lat, Longitude: *lng},
			geo.PointFromDecimal(loc.Latitude, loc.Longitude),
			s.radiusMeters,
		)
		if !within {
			meters := int64(math.Round(d))
			metrics.VisitConfirmations.WithLabelValues(string(kind), metrics.OutcomeTooFar).Inc()
			s.log.Info("visit confirmation outside geofence",
				zap.String("kind", string(kind)),
				zap.String("visit_id", visitID),
				zap.Int64("distance_meters", meters),
			)
			return &models.VisitConfirmation{
				Mutated:        false,
				TooFar:         true,
				DistanceMeters: &meters,
				Message: fmt.Sprintf("You are %dm away from %s. Move within %dm to confirm this visit.",
					meters, target.Name, int64(s.radiusMeters)),
			}, nil
		}
	} else {
		outcome = metrics.OutcomeNoLocation
		s.log.Warn("target has no location, confirming without distance check",
			zap.String("kind", string(kind)),
			zap.String("target_id", target.ID),
			zap.String("visit_id", visitID),
		)
	}

	var userLat, userLng decimal.NullDecimal
	if lat != nil {
		userLat = decimal.NewNullDecimal(decimal.NewFromFloat(*lat))
		userLng = decimal.NewNullDecimal(decimal.NewFromFloat(*lng))
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE %s
		SET confirmed = TRUE, latitude = $1, longitude = $2, confirmed_at = $3, updated_at = $3
		WHERE id = $4 AND organization_id = $5
		RETURNING %s`, kind.VisitTable(), visitColumns)

	confirmed, err := scanVisit(s.db.QueryRowContext(ctx, query, userLat, userLng, now, visitID, actor.OrganizationID), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("%s visit %s not found", kind, visitID)
	}
	if err != nil {
		return nil, fmt.Errorf("confirm %s visit: %w", kind, err)
	}

	metrics.VisitConfirmations.WithLabelValues(string(kind), outcome).Inc()
	s.audit.LogOperation(actor.OrganizationID, actor.UserID, visitID, audit.EventVisitConfirmed, map[string]string{
		"kind":    string(kind),
		"outcome": outcome,
	})

	return &models.VisitConfirmation{Mutated: true, Visit: confirmed}, nil
}

// ScheduleVisit creates a pending visit for the caller.
func (s *VisitService) ScheduleVisit(ctx context.Context, actor Actor, kind models.VisitKind, req ScheduleVisitRequest) (*models.Visit, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, invalidf("date must be YYYY-MM-DD")
	}

	if _, err := s.loadTarget(ctx, actor.OrganizationID, kind, req.TargetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, target_id, user_id, visit_date, notes, confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		RETURNING %s`, kind.VisitTable(), visitColumns)

	v, err := scanVisit(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), actor.OrganizationID, req.TargetID, actor.UserID, date, req.Notes, now), kind)
	if err != nil {
		return nil, fmt.Errorf("schedule %s visit: %w", kind, err)
	}
	return v, nil
}

// GetVisit returns a visit owned by the caller. Managers and admins can read
// any visit in the organization.
func (s *VisitService) GetVisit(ctx context.Context, actor Actor, kind models.VisitKind, visitID string) (*models.Visit, error) {
	v, err := s.loadVisit(ctx, actor.OrganizationID, kind, visitID)
	if err != nil {
		return nil, err
	}
	if v.UserID != actor.UserID && !models.CanReview(actor.Role) {
		return nil, notFoundf("%s visit %s not found", kind, visitID)
	}
	return v, nil
}

// ListVisits returns the caller's visits, optionally for a single day.
func (s *VisitService) ListVisits(ctx context.Context, actor Actor, kind models.VisitKind, date *time.Time) ([]models.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE organization_id = $1 AND user_id = $2`, visitColumns, kind.VisitTable())
	args := []any{actor.OrganizationID, actor.UserID}
	if date != nil {
		query += ` AND visit_date = $3`
		args = append(args, date.Format(dateLayout))
	}
	query += ` ORDER BY visit_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s visits: %w", kind, err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s visit: %w", kind, err)
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

// SetTargetLocation stores the reference point used by the geofence.
func (s *VisitService) SetTargetLocation(ctx context.Context, actor Actor, kind models.VisitKind, targetID string, lat, lng float64) (*models.Target, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET latitude = $1, longitude = $2, updated_at = $3
		WHERE id = $4 AND organization_id = $5
		RETURNING id, organization_id, name, latitude, longitude`, kind.TargetTable())

	t := models.Target{Kind: kind}
	err := s.db.QueryRowContext(ctx, query,
		decimal.NewFromFloat(lat), decimal.NewFromFloat(lng), time.Now().UTC(), targetID, actor.OrganizationID,
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Latitude, &t.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("%s %s not found", kind, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("set %s location: %w", kind, err)
	}
	return &t, nil
}

// CreateTarget adds a visit target to the actor's organization.
func (s *VisitService) CreateTarget(ctx context.Context, actor Actor, kind models.VisitKind, req CreateTargetRequest) (*models.Target, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, invalidf("latitude and longitude must be given together")
	}
	var lat, lng decimal.NullDecimal
	if req.Latitude != nil {
		lat = decimal.NewNullDecimal(decimal.NewFromFloat(*req.Latitude))
		lng = decimal.NewNullDecimal(decimal.NewFromFloat(*req.Longitude))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, name, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, organization_id, name, latitude, longitude`, kind.TargetTable())

	t := models.Target{Kind: kind}
	err := s.db.QueryRowContext(ctx, query,
		uuid.New().String(), actor.OrganizationID, req.Name, lat, lng, time.Now().UTC(),
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Latitude, &t.Longitude)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	s.audit.LogOperation(actor.OrganizationID, actor.UserID, t.ID, audit.EventTargetCreated, map[string]string{
		"kind": string(kind),
		"name": t.Name,
	})
	return &t, nil
}

func visitKindParam(w http.ResponseWriter, r *http.Request) (models.VisitKind, bool) {
	kind, ok := models.ParseVisitKind(chi.URLParam(r, "kind"))
	if !ok {
		SendErrorResponse(w, "Unknown visit kind", http.StatusBadRequest, nil)
	}
	return kind, ok
}

// Schedule handles visit creation
// @Summary Schedule a visit
// @Description Create a pending doctor, chemist or stockist visit for the caller
// @Tags visits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Visit kind" Enums(doctor, chemist, stockist)
// @Param request body ScheduleVisitRequest true "Visit"
// @Success 201 {object} models.Visit
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Target not found"
// @Router /visits/{kind} [post]
func (s *VisitService) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	var req ScheduleVisitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	v, err := s.ScheduleVisit(r.Context(), actor, kind, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// List handles visit listing
// @Summary List visits
// @Description List the caller's visits of one kind, optionally for one day
// @Tags visits
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Visit kind" Enums(doctor, chemist, stockist)
// @Param date query string false "Day (YYYY-MM-DD)"
// @Success 200 {array} models.Visit
// @Failure 400 {object} ErrorResponse
// @Router /visits/{kind} [get]
func (s *VisitService) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			SendErrorResponse(w, "date must be YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		date = &d
	}

	visits, err := s.ListVisits(r.Context(), actor, kind, date)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

// Get handles visit lookup
// @Summary Get a visit
// @Tags visits
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Visit kind" Enums(doctor, chemist, stockist)
// @Param visitId path string true "Visit ID"
// @Success 200 {object} models.Visit
// @Failure 404 {object} ErrorResponse
// @Router /visits/{kind}/{visitId} [get]
func (s *VisitService) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	v, err := s.GetVisit(r.Context(), actor, kind, chi.URLParam(r, "visitId"))
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Confirm handles geofenced visit confirmation
// @Summary Confirm a visit
// @Description Confirm a visit when the caller is within the geofence radius of the target.
// @Description A caller outside the radius receives success=false with the distance; the visit is not changed.
// @Tags visits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Visit kind" Enums(doctor, chemist, stockist)
// @Param visitId path string true "Visit ID"
// @Param request body ConfirmVisitRequest true "Caller position"
// @Success 200 {object} ConfirmVisitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /visits/{kind}/{visitId}/confirm [post]
func (s *VisitService) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	var req ConfirmVisitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := s.ConfirmVisit(r.Context(), actor, kind, chi.URLParam(r, "visitId"), req.Latitude, req.Longitude)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmVisitResponse{Success: result.Mutated, VisitConfirmation: result})
}

// UpdateTargetLocation handles target location updates
// @Summary Set target location
// @Description Store the latitude and longitude used to geofence visits to a target
// @Tags visits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Target kind" Enums(doctor, chemist, stockist)
// @Param targetId path string true "Target ID"
// @Param request body TargetLocationRequest true "Location"
// @Success 200 {object} models.Target
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /targets/{kind}/{targetId}/location [put]
func (s *VisitService) UpdateTargetLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	var req TargetLocationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	t, err := s.SetTargetLocation(r.Context(), actor, kind, chi.URLParam(r, "targetId"), *req.Latitude, *req.Longitude)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// AddTarget handles target creation
// @Summary Create a target
// @Description Add a doctor, chemist or stockist that visits can be scheduled against
// @Tags visits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Target kind" Enums(doctor, chemist, stockist)
// @Param request body CreateTargetRequest true "Target"
// @Success 201 {object} models.Target
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /targets/{kind} [post]
func (s *VisitService) AddTarget(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := visitKindParam(w, r)
	if !ok {
		return
	}

	var req CreateTargetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	t, err := s.CreateTarget(r.Context(), actor, kind, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
