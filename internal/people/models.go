// Package people tracks the humans devices get assigned to. These are
// directory rows, not login users; a person needs no account to be
// handed a laptop.
package people

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tryequipped/equipped/internal/scoped"
)

var (
	// ErrPersonNotFound is returned when a person id does not exist in
	// this workspace
	ErrPersonNotFound = errors.New("person not found")

	// ErrNameRequired is returned when the full name is blank
	ErrNameRequired = errors.New("full name is required")
)

// Person is one directory entry.
type Person struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Table is the scoped descriptor for people rows.
var Table = scoped.Table{
	Name:    "people",
	Columns: []string{"full_name", "email", "department", "created_at", "updated_at"},
}
