package services

import "github.com/shopspring/decimal"

// AuditLogger records money and compliance events. audit.Logger implements it.
type AuditLogger interface {
	LogPayment(orgID, actorID, batchID string, amount decimal.Decimal, details map[string]string)
	LogOperation(orgID, actorID, entityID, operation string, details map[string]string)
	LogError(orgID, actorID, entityID string, err error)
}
