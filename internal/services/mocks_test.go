package services

import (
	"context"
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldforce/backend/internal/middleware"
	"github.com/fieldforce/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testOrgID     = "7b0e2a0c-9d7e-4f0e-8a53-1d2f3c4b5a69"
	testUserID    = "2f1c6c7e-3a55-4c3e-9a4b-5b8f0c1d2e3f"
	testManagerID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var (
	employee = Actor{UserID: testUserID, OrganizationID: testOrgID, Role: models.RoleEmployee}
	manager  = Actor{UserID: testManagerID, OrganizationID: testOrgID, Role: models.RoleManager}
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogPayment(orgID, actorID, batchID string, amount decimal.Decimal, details map[string]string) {
	m.Called(orgID, actorID, batchID, amount, details)
}

func (m *MockAuditLogger) LogOperation(orgID, actorID, entityID, operation string, details map[string]string) {
	m.Called(orgID, actorID, entityID, operation, details)
}

func (m *MockAuditLogger) LogError(orgID, actorID, entityID string, err error) {
	m.Called(orgID, actorID, entityID, err)
}

// fakeRates serves fixed rates without a database.
type fakeRates struct {
	rates *models.Rates
	err   error
}

func (f fakeRates) Rates(ctx context.Context, orgID string) (*models.Rates, error) {
	return f.rates, f.err
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// asActor attaches the actor's JWT claims to the request.
func asActor(r *http.Request, actor Actor) *http.Request {
	claims := &middleware.Claims{
		UserID:         actor.UserID,
		OrganizationID: actor.OrganizationID,
		Role:           actor.Role,
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

// sqlPattern matches a multi-line statement exactly, tolerating any
// whitespace between its lines.
func sqlPattern(lines ...string) string {
	quoted := make([]string, len(lines))
	for i, l := range lines {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return strings.Join(quoted, `\s+`)
}
