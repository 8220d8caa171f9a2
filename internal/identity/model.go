package identity

import (
	"strings"
	"time"
)

// Role distinguishes customers from back-office staff.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Status is the lifecycle state of a user.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusClosed:
		return true
	}
	return false
}

// User represents a registered customer or administrator.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	KYCVerified  bool       `json:"kyc_verified"`
	TokenVersion int        `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Registration is the input of Register.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

// ProfileUpdate carries the editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// ListFilter narrows admin user listings. Search matches email, names and
// phone case-insensitively. A non-zero JoinedFrom keeps customers created at or
// after it.
type ListFilter struct {
	Search     string
	JoinedFrom time.Time
	Skip       int
	Take       int
}

// Page is one page of users with the total match count.
type Page struct {
	Data  []User `json:"data"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Take  int    `json:"take"`
}

// Counts summarises customers by status.
type Counts struct {
	Total     int `json:"total_users"`
	Active    int `json:"active_users"`
	Suspended int `json:"suspended_users"`
	Closed    int `json:"closed_users"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (f ListFilter) matches(u User) bool {
	if u.Role != RoleCustomer {
		return false
	}
	if !f.JoinedFrom.IsZero() && u.CreatedAt.Before(f.JoinedFrom) {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, field := range []string{u.Email, u.FirstName, u.LastName, u.Phone} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
