package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStudent   Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Instrument string    `json:"instrument,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsAdmin() bool     { return u.Role == RoleAdmin }
func (u *User) IsProfessor() bool { return u.Role == RoleProfessor }
func (u *User) IsStudent() bool   { return u.Role == RoleStudent }

// CanBook reports whether the user may create studio sessions.
func (u *User) CanBook() bool {
	return u.Role == RoleProfessor || u.Role == RoleAdmin
}

// Matches does a case-insensitive roster search over name, username, email and instrument.
func (u *User) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range []string{u.FirstName + " " + u.LastName, u.Username, u.Email, u.Instrument} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
