// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
//
// These are plain data structs. They carry no database handle and no behaviour
// beyond small helpers: persistence lives in internal/repository, business rules
// in internal/service.
package model

import "time"

// User represents a registered user account.
//
// Email is the identity key. It is stored normalised (trimmed, lower-cased) so
// "Usman@GMAIL.com" and "usman@gmail.com" are the same account.
//
// PasswordHash holds the full bcrypt output (algorithm, cost and salt included).
// It is tagged `json:"-"` so a User can never leak its hash through an
// accidental writeJSON(w, user).
type User struct {
	ID           string    `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`
	Name         string    `json:"name"        db:"name"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	IsActive     bool      `json:"isActive"    db:"is_active"`
	IsStaff      bool      `json:"isStaff"     db:"is_staff"`
	IsSuperuser  bool      `json:"isSuperuser" db:"is_superuser"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

func (u User) String() string {
	return u.Email
}
