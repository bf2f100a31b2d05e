package models

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleEducator UserRole = "educator"
	RoleAdmin    UserRole = "admin"
)

// AuthUser is the identity extracted from the access token. Users are
// managed by Casdoor, this service never persists them.
type AuthUser struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}
