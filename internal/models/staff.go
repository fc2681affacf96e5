package models

import "time"

// Staff is an employee of the chain. Created on first interaction; rows are
// never deleted.
type Staff struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	ShopID       *int      `json:"shop_id,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	ChatID       string    `json:"chat_id,omitempty"`
	PasswordHash string    `json:"-"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Shop is one retail location.
type Shop struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// LoginRequest carries staff credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the session token and the authenticated staff row.
type LoginResponse struct {
	Token string `json:"token"`
	Staff *Staff `json:"staff"`
}
