// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account identified by a unique email.
//
// PasswordHash holds the bcrypt hash, never the plaintext. The json:"-"
// tag guarantees it can never leak through an API response, even if a
// handler serializes the full struct by mistake.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
