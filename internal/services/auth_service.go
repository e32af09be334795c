package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fieldforce/backend/internal/config"
	"github.com/fieldforce/backend/internal/middleware"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

const uniqueViolation = "23505"

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	log       *zap.Logger
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"rep@example.com"` // User email
	Password string `json:"password" validate:"required,min=6" example:"password123"` // User password
}

// CreateUserRequest represents an admin adding a user to their organization
// @Description User creation structure
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email" example:"rep@example.com"`                 // User email address
	Password    string `json:"password" validate:"required,min=6" example:"password123"`                  // Initial password
	FirstName   string `json:"firstName" validate:"required,min=2" example:"Asha"`                        // User first name
	LastName    string `json:"lastName" validate:"required,min=2" example:"Rao"`                          // User last name
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20" example:"+919812345678"`           // Phone number
	Role        string `json:"role" validate:"omitempty,oneof=employee manager admin" example:"employee"` // Defaults to employee
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	User  models.User `json:"user"`                                                    // User information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, log *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		log:       log.Named("auth"),
	}
}

// CreateUser adds a user to the actor's organization. Users never choose
// their own organization or role.
func (s *AuthService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleEmployee
	}

	user := &models.User{
		OrganizationID: actor.OrganizationID,
		Email:          strings.ToLower(req.Email),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Role:           role,
	}
	if err := s.insertUser(ctx, user, req.Password); err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("organization_id", user.OrganizationID),
		zap.String("role", user.Role),
		zap.String("created_by", actor.UserID))
	return user, nil
}

// SeedAdmin provisions an organization's first admin from configuration.
// It is a no-op when no seed is configured or the email is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, seed *config.AdminSeed) error {
	if seed == nil || seed.Email == "" {
		return nil
	}
	if _, err := uuid.Parse(seed.OrganizationID); err != nil {
		return fmt.Errorf("admin seed organization id: %w", err)
	}
	if len(seed.Password) < 6 {
		return errors.New("admin seed password must be at least 6 characters")
	}

	err := s.insertUser(ctx, &models.User{
		OrganizationID: seed.OrganizationID,
		Email:          strings.ToLower(seed.Email),
		FirstName:      seed.FirstName,
		LastName:       seed.LastName,
		Role:           models.RoleAdmin,
	}, seed.Password)
	if errors.Is(err, ErrEmailExists) {
		s.log.Debug("admin seed already present", zap.String("organization_id", seed.OrganizationID))
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("admin seeded", zap.String("organization_id", seed.OrganizationID))
	return nil
}

func (s *AuthService) insertUser(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (organization_id, email, password, first_name, last_name, phone_number, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		user.OrganizationID, user.Email, hashedPassword, user.FirstName, user.LastName, user.PhoneNumber, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	var hashedPassword string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, first_name, last_name, phone_number, role, password, created_at, updated_at
		FROM users WHERE email = $1`, strings.ToLower(email),
	).Scan(&user.ID, &user.OrganizationID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber,
		&user.Role, &hashedPassword, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !verifyPassword(password, hashedPassword) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// AddUser handles user creation
// @Summary Add a user
// @Description Add a user to the caller's organization (admin only)
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} models.User "User created"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 403 {object} ErrorResponse "Not an admin"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [post]
func (s *AuthService) AddUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := s.CreateUser(r.Context(), actor, req)
	if err != nil {
		WriteError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := s.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		s.log.Info("login rejected", zap.String("remote_addr", r.RemoteAddr))
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if err != nil {
		WriteError(w, s.log, err)
		return
	}

	token, err := generateJWT(user)
	if err != nil {
		WriteError(w, s.log, fmt.Errorf("sign token: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: *user})
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" && s.redis != nil {
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.ExpiresAt != nil {
			expiry = time.Until(claims.ExpiresAt.Time)
		}
		if expiry > 0 {
			if err := s.redis.Set(r.Context(), middleware.BlacklistKey(token), "1", expiry).Err(); err != nil {
				s.log.Warn("token blacklist failed", zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// GetUserAccount retrieves user account details from auth token
// @Summary Get user account details
// @Description Get authenticated user's account information
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "User account details"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/account [get]
func (s *AuthService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var user models.User
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, organization_id, email, first_name, last_name, phone_number, role, created_at, updated_at
		FROM users WHERE id = $1 AND organization_id = $2`, actor.UserID, actor.OrganizationID,
	).Scan(&user.ID, &user.OrganizationID, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNumber,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, s.log, notFoundf("user not found"))
		return
	}
	if err != nil {
		WriteError(w, s.log, fmt.Errorf("load user: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := middleware.Claims{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
