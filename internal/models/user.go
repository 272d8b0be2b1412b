package models

import "github.com/google/uuid"

// User is an account row. Password holds the argon2id encoded hash and is
// never serialized outward.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Name     string    `json:"name"`
	Rating   int       `json:"rating"`
}
