package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		organization_id UUID NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'employee',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	targetTable("doctors"),
	targetTable("chemists"),
	targetTable("stockists"),

	visitTable("doctor_visits", "doctors"),
	visitTable("chemist_visits", "chemists"),
	visitTable("stockist_visits", "stockists"),

	`CREATE TABLE IF NOT EXISTS rate_settings (
		organization_id UUID PRIMARY KEY,
		rate_per_km NUMERIC(10,2) NOT NULL CHECK (rate_per_km >= 0),
		head_office_amount NUMERIC(10,2) NOT NULL CHECK (head_office_amount >= 0),
		outside_head_office_amount NUMERIC(10,2) NOT NULL CHECK (outside_head_office_amount >= 0),
		updated_by UUID,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		organization_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id),
		category TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		travel_details JSONB,
		total_distance_km NUMERIC(10,2),
		rate_per_km NUMERIC(10,2),
		daily_allowance_type TEXT,
		date DATE NOT NULL,
		end_date DATE,
		description TEXT NOT NULL DEFAULT '',
		edit_count INT NOT NULL DEFAULT 0 CHECK (edit_count <= 1),
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		payment_date TIMESTAMPTZ,
		payment_month_year TEXT,
		transaction_id TEXT,
		payment_note TEXT,
		reviewed_by UUID,
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_payable
		ON expenses (organization_id, user_id, status, payment_status, date)`,

	`CREATE TABLE IF NOT EXISTS payment_batches (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id),
		month_year TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		expense_ids UUID[] NOT NULL,
		expense_count INT NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		payment_note TEXT,
		paid_at TIMESTAMPTZ NOT NULL,
		paid_by UUID NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS app_versions (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL,
		latest_version TEXT NOT NULL,
		minimum_version TEXT,
		force_update BOOLEAN NOT NULL DEFAULT FALSE,
		release_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS version_checks (
		user_id UUID PRIMARY KEY REFERENCES users(id),
		organization_id UUID NOT NULL,
		current_version TEXT NOT NULL,
		latest_version TEXT NOT NULL,
		update_required BOOLEAN NOT NULL,
		update_type TEXT NOT NULL,
		force_update BOOLEAN NOT NULL,
		check_count INT NOT NULL DEFAULT 1,
		last_checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func targetTable(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		organization_id UUID NOT NULL,
		name TEXT NOT NULL,
		latitude NUMERIC(11,8),
		longitude NUMERIC(11,8),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name)
}

func visitTable(name, targets string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		organization_id UUID NOT NULL,
		target_id UUID NOT NULL REFERENCES %s(id),
		user_id UUID NOT NULL REFERENCES users(id),
		visit_date DATE NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		latitude NUMERIC(11,8),
		longitude NUMERIC(11,8),
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name, targets)
}

// Bootstrap creates any missing tables. Every statement is idempotent.
func Bootstrap(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %s: %w", firstLine(stmt), err)
		}
	}
	log.Info("database schema ready", zap.Int("statements", len(schema)))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
