package models

import "time"

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

type User struct {
	ID             string    `json:"id" db:"id" example:"2f1c6c7e-3a55-4c3e-9a4b-5b8f0c1d2e3f"` // User ID
	OrganizationID string    `json:"organizationId" db:"organization_id"`                        // Tenant
	Email          string    `json:"email" db:"email" example:"rep@example.com"`                 // User email
	FirstName      string    `json:"firstName" db:"first_name" example:"Asha"`                   // User first name
	LastName       string    `json:"lastName" db:"last_name" example:"Rao"`                      // User last name
	PhoneNumber    string    `json:"phoneNumber" db:"phone_number" example:"+919812345678"`      // User phone number
	Role           string    `json:"role" db:"role" example:"employee"`                          // admin, manager or employee
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// CanReview reports whether the role may review expenses and manage targets.
func CanReview(role string) bool {
	return role == RoleAdmin || role == RoleManager
}
