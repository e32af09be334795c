// Package audit writes the audit trail for state changes that affect money or
// visit compliance.
package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventPaymentFinalized = "PAYMENT_FINALIZED"
	EventVisitConfirmed   = "VISIT_CONFIRMED"
	EventTargetCreated    = "TARGET_CREATED"
	EventExpenseReviewed  = "EXPENSE_REVIEWED"
	EventExpenseEdited    = "EXPENSE_EDITED"
	EventRatesUpdated     = "RATES_UPDATED"
	EventVersionPublished = "VERSION_PUBLISHED"
	EventError            = "ERROR"
)

type Event struct {
	Timestamp      time.Time         `json:"timestamp"`
	EventType      string            `json:"event_type"`
	OrganizationID string            `json:"organization_id"`
	ActorID        string            `json:"actor_id"`
	EntityID       string            `json:"entity_id"`
	Amount         *decimal.Decimal  `json:"amount,omitempty"`
	Status         string            `json:"status"`
	Details        map[string]string `json:"details,omitempty"`
}

type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Named("audit")}
}

func (a *Logger) LogPayment(orgID, actorID, batchID string, amount decimal.Decimal, details map[string]string) {
	a.write(Event{
		Timestamp:      time.Now(),
		EventType:      EventPaymentFinalized,
		OrganizationID: orgID,
		ActorID:        actorID,
		EntityID:       batchID,
		Amount:         &amount,
		Status:         "SUCCESS",
		Details:        details,
	})
}

func (a *Logger) LogOperation(orgID, actorID, entityID, operation string, details map[string]string) {
	a.write(Event{
		Timestamp:      time.Now(),
		EventType:      operation,
		OrganizationID: orgID,
		ActorID:        actorID,
		EntityID:       entityID,
		Status:         "SUCCESS",
		Details:        details,
	})
}

func (a *Logger) LogError(orgID, actorID, entityID string, err error) {
	a.write(Event{
		Timestamp:      time.Now(),
		EventType:      EventError,
		OrganizationID: orgID,
		ActorID:        actorID,
		EntityID:       entityID,
		Status:         "FAILED",
		Details:        map[string]string{"error": err.Error()},
	})
}

func (a *Logger) write(event Event) {
	fields := []zap.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("organization_id", event.OrganizationID),
		zap.String("actor_id", event.ActorID),
		zap.String("entity_id", event.EntityID),
		zap.String("status", event.Status),
	}
	if event.Amount != nil {
		fields = append(fields, zap.String("amount", event.Amount.StringFixed(2)))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}
	a.log.Info("audit", fields...)
}
