package models

// User is the account returned by the auth endpoints
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Credentials is the body of POST /auth/login and POST /auth/register
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ProfileUpdate is the body of PUT /auth/update-profile. Password fields
// are only sent when the password is being changed.
type ProfileUpdate struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
}

// Account roles
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
)
