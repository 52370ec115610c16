package domain

import "time"

// User is any authenticated principal: customer contacts, company admins,
// agents, agent managers and super admins. Customers carry a company
// association; agency-side roles do not.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Company is the tenant a customer belongs to.
type Company struct {
	ID        string
	Name      string
	Code      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
