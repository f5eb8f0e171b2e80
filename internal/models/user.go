package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleHR        UserRole = "HR"
	RoleManager   UserRole = "MANAGER"
	RoleRecruiter UserRole = "RECRUITER"
	RoleViewer    UserRole = "VIEWER"
	RoleEmployee  UserRole = "EMPLOYEE"
)

// JWTClaims represents the session context carried by bearer tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	EmployeeID string   `json:"employee_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email,omitempty"`
	FullName   string   `json:"full_name,omitempty"`
	// Token is the raw bearer token, forwarded to the Record Store.
	Token string `json:"-"`
	jwt.RegisteredClaims
}

// IsReviewer reports whether the actor may act on other employees' requests.
func (c *JWTClaims) IsReviewer() bool {
	return c != nil && (c.Role == RoleHR || c.Role == RoleManager)
}

// Subject is the employee id the actor edits as, falling back to the user id.
func (c *JWTClaims) Subject() string {
	if c == nil {
		return ""
	}
	if c.EmployeeID != "" {
		return c.EmployeeID
	}
	return c.UserID
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
