package services

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/middleware"
)

const maxBodyBytes = 1_048_576 // 1 MB

const dateLayout = "2006-01-02"

// Actor is the authenticated caller.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           string
}

// ActorFromRequest reads the caller from the JWT claims set by AuthMiddleware.
func ActorFromRequest(r *http.Request) (Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: claims.UserID, OrganizationID: claims.OrganizationID, Role: claims.Role}, true
}

// requireActor writes 401 when the request carries no caller.
func requireActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor, ok := ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return actor, ok
}

// DecodeJSON reads exactly one JSON object with no unknown fields. On failure
// it writes the 400 response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
