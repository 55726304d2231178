package models

import "time"

// User roles. Admins get access to the /admin route group.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     Address   `json:"address"`
	Password    string    `json:"-"` // bcrypt hash, never returned
	Photo       string    `json:"photo,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
