package models

import "time"

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Requester is the authenticated identity behind a call.
type Requester struct {
	UserID  string
	IsAdmin bool
}

// SystemRequester acts for internal consumers such as the payment event relay.
var SystemRequester = Requester{UserID: "system", IsAdmin: true}

// CanAccess reports whether the requester owns the resource or is an admin.
func (r Requester) CanAccess(ownerID string) bool {
	return r.IsAdmin || (r.UserID != "" && r.UserID == ownerID)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type UpdateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" binding:"omitempty,email"`
	IsAdmin *bool  `json:"isAdmin"`
}

type AuthResponse struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}
