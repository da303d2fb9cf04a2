package models

import "time"

// Role is the access level of a user
type Role string

const (
	RoleEmployee Role = "employee"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account
type User struct {
	ID           string     `json:"id" db:"id" bson:"_id"`
	Username     string     `json:"username" db:"username" bson:"username"`
	Email        string     `json:"email" db:"email" bson:"email"`
	Password     string     `json:"-" db:"password" bson:"password"` // bcrypt hash, never serialized
	APIKey       string     `json:"apiKey" db:"api_key" bson:"apiKey"`
	Role         Role       `json:"role" db:"role" bson:"role"`
	Avatar       string     `json:"avatar" db:"avatar" bson:"avatar"` // empty means no avatar
	OTP          string     `json:"-" db:"otp" bson:"otp,omitempty"`
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at" bson:"otpExpiresAt,omitempty"`
	Verified     bool       `json:"verified" db:"verified" bson:"verified"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// HasAvatar reports whether an avatar is currently set
func (u *User) HasAvatar() bool {
	return u.Avatar != ""
}
