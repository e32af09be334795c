package audit

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewLogger(zap.New(core))

	a.LogPayment("org-1", "admin-1", "batch-1", decimal.RequireFromString("36"), map[string]string{"month_year": "2024-02"})
	a.LogOperation("org-1", "rep-1", "visit-1", EventVisitConfirmed, nil)
	a.LogError("org-1", "rep-1", "expense-1", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 3)

	payment := entries[0].ContextMap()
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, EventPaymentFinalized, payment["event_type"])
	assert.Equal(t, "36.00", payment["amount"])
	assert.Equal(t, "batch-1", payment["entity_id"])

	visit := entries[1].ContextMap()
	assert.Equal(t, EventVisitConfirmed, visit["event_type"])
	assert.NotContains(t, visit, "amount")
	assert.NotContains(t, visit, "details")

	failure := entries[2].ContextMap()
	assert.Equal(t, "FAILED", failure["status"])
	assert.Equal(t, map[string]string{"error": "boom"}, failure["details"])
}
