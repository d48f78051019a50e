// Package devices manages the equipment inventory: laptops, phones,
// peripherals, whatever the workspace hands out and takes back.
package devices

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tryequipped/equipped/internal/scoped"
)

// Device lifecycle statuses.
const (
	StatusActive   = "active"
	StatusAssigned = "assigned"
	StatusInRepair = "in_repair"
	StatusRetired  = "retired"
	StatusSold     = "sold"
)

// ValidStatus reports whether s is a known device status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusAssigned, StatusInRepair, StatusRetired, StatusSold:
		return true
	}
	return false
}

var (
	// ErrDeviceNotFound is returned when a device id does not exist in
	// this workspace
	ErrDeviceNotFound = errors.New("device not found")

	// ErrPersonNotFound is returned when an assignment target does not
	// exist in this workspace
	ErrPersonNotFound = errors.New("person not found")

	// ErrNameRequired is returned when the device name is blank
	ErrNameRequired = errors.New("device name is required")

	// ErrInvalidStatus is returned for an unknown device status
	ErrInvalidStatus = errors.New("invalid device status")

	// ErrNegativePrice is returned when a price field is below zero
	ErrNegativePrice = errors.New("price cannot be negative")
)

// Device is one inventory row.
type Device struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	SerialNumber        string     `json:"serial_number"`
	Model               string     `json:"model"`
	Status              string     `json:"status"`
	AssignedPersonID    *uuid.UUID `json:"assigned_person_id,omitempty"`
	PurchasePriceCents  *int64     `json:"purchase_price_cents,omitempty"`
	EstimatedValueCents *int64     `json:"estimated_value_cents,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Table is the scoped descriptor for device rows.
var Table = scoped.Table{
	Name: "devices",
	Columns: []string{
		"name", "serial_number", "model", "status", "assigned_person_id",
		"purchase_price_cents", "estimated_value_cents", "created_at", "updated_at",
	},
}
