package models

import "time"

// AppVersionConfig is an admin-published client release. The newest row wins.
type AppVersionConfig struct {
	ID             string    `json:"id" db:"id"`
	LatestVersion  string    `json:"latestVersion" db:"latest_version"`
	MinimumVersion *string   `json:"minimumVersion,omitempty" db:"minimum_version"`
	ForceUpdate    bool      `json:"forceUpdate" db:"force_update"`
	ReleaseNotes   string    `json:"releaseNotes" db:"release_notes"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// VersionCheck is the last version a user reported and how it compared.
type VersionCheck struct {
	UserID         string    `json:"userId" db:"user_id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	CurrentVersion string    `json:"currentVersion" db:"current_version"`
	LatestVersion  string    `json:"latestVersion" db:"latest_version"`
	UpdateRequired bool      `json:"updateRequired" db:"update_required"`
	UpdateType     string    `json:"updateType" db:"update_type"`
	ForceUpdate    bool      `json:"forceUpdate" db:"force_update"`
	CheckCount     int       `json:"checkCount" db:"check_count"`
	LastCheckedAt  time.Time `json:"lastCheckedAt" db:"last_checked_at"`
	ReleaseNotes   string    `json:"releaseNotes,omitempty"`
}
