// Package orders tracks purchases, trade-ins, and proposals raised
// against the fleet. Orders move through a small state machine; every
// transition endpoint enforces it.
package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tryequipped/equipped/internal/scoped"
)

// Order kinds.
const (
	KindPurchase = "purchase"
	KindTradeIn  = "trade_in"
	KindProposal = "proposal"
)

// ValidKind reports whether k is a known order kind.
func ValidKind(k string) bool {
	switch k {
	case KindPurchase, KindTradeIn, KindProposal:
		return true
	}
	return false
}

// Order statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusFulfilled, StatusCancelled:
		return true
	}
	return false
}

// transitions maps each status to the statuses reachable from it.
// Fulfilled and cancelled are terminal.
var transitions = map[string][]string{
	StatusDraft:     {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusFulfilled, StatusCancelled},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	// ErrOrderNotFound is returned when an order id does not exist in
	// this workspace
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidKind is returned for an unknown order kind
	ErrInvalidKind = errors.New("invalid order kind")

	// ErrInvalidStatus is returned for an unknown order status
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidTransition is returned when a status change is not
	// permitted from the order's current status
	ErrInvalidTransition = errors.New("order cannot move to that status")

	// ErrNotEditable is returned when a mutation targets an order that
	// has left draft
	ErrNotEditable = errors.New("only draft orders can be edited")

	// ErrNegativeTotal is returned when the order total is below zero
	ErrNegativeTotal = errors.New("total cannot be negative")
)

// Order is one order row.
type Order struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Table is the scoped descriptor for order rows.
var Table = scoped.Table{
	Name:    "orders",
	Columns: []string{"kind", "status", "total_cents", "notes", "created_at", "updated_at"},
}
