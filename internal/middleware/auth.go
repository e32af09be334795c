package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const claimsKey contextKey = "claims"

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

var blacklist *redis.Client

// InitAuthMiddleware enables the logout blacklist. A nil client disables it.
func InitAuthMiddleware(redisClient *redis.Client) {
	blacklist = redisClient
}

// BlacklistKey is the Redis key marking a logged-out token.
func BlacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeAuthError(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]

		if blacklist != nil {
			if n, err := blacklist.Exists(r.Context(), BlacklistKey(token)).Result(); err == nil && n > 0 {
				writeAuthError(w, "Token has been revoked", http.StatusUnauthorized)
				return
			}
		}

		claims, err := ValidateToken(token)
		if err != nil {
			writeAuthError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole rejects callers whose role is not listed. It must run after
// AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAuthError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, "Insufficient permissions", http.StatusForbidden)
		})
	}
}

// ValidateToken parses and verifies an HS256 token.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || claims.OrganizationID == "" {
		return nil, errors.New("token missing user or organization")
	}
	return claims, nil
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

func writeAuthError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
