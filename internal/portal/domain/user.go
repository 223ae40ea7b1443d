package domain

import "time"

// User profile values carried on the wire and persisted alongside the user.
const (
	ProfileAdmin   = "ADMIN"
	ProfileManager = "MANAGER"
	ProfileUser    = "USER"
)

type User struct {
	ID           string
	Name         string
	Matricula    string // zero-padded 6-digit employee code, unique
	Email        string // unique
	PasswordHash string // argon2 encoded
	CPF          string // national ID, unique
	JobTitle     string
	Sector       string
	Profile      string // ADMIN | MANAGER | USER
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
