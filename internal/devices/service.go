package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/people"
	"github.com/tryequipped/equipped/internal/scoped"
)

// Service provides inventory operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new devices service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// DeviceInput carries the writable fields of a device. Assignment is
// not among them; that goes through Assign and Unassign so the status
// and the person pointer move together.
type DeviceInput struct {
	Name                string `json:"name"`
	SerialNumber        string `json:"serial_number"`
	Model               string `json:"model"`
	Status              string `json:"status"`
	PurchasePriceCents  *int64 `json:"purchase_price_cents"`
	EstimatedValueCents *int64 `json:"estimated_value_cents"`
}

func (in *DeviceInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.Model = strings.TrimSpace(in.Model)
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !ValidStatus(in.Status) {
		return ErrInvalidStatus
	}
	if in.PurchasePriceCents != nil && *in.PurchasePriceCents < 0 {
		return ErrNegativePrice
	}
	if in.EstimatedValueCents != nil && *in.EstimatedValueCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

func scanDevice(dest *Device) []any {
	return []any{
		&dest.ID, &dest.Name, &dest.SerialNumber, &dest.Model, &dest.Status,
		&dest.AssignedPersonID, &dest.PurchasePriceCents, &dest.EstimatedValueCents,
		&dest.CreatedAt, &dest.UpdatedAt,
	}
}

// List retrieves the workspace inventory, optionally filtered by
// status.
func (s *Service) List(ctx context.Context, scope scoped.Scope, status string) ([]Device, error) {
	var stmt scoped.Statement
	if status != "" {
		if !ValidStatus(status) {
			return nil, ErrInvalidStatus
		}
		stmt = scope.SelectWhere(Table, "status = $1", []any{status}, "name ASC")
	} else {
		stmt = scope.SelectAll(Table, "name ASC")
	}

	rows, err := scoped.Query(ctx, s.pool, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(scanDevice(&d)...); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}

	return devices, nil
}

// Get retrieves one device within the workspace.
func (s *Service) Get(ctx context.Context, scope scoped.Scope, id uuid.UUID) (*Device, error) {
	var d Device
	err := scoped.Get(ctx, s.pool, scope.SelectByID(Table, id), scanDevice(&d)...)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create adds a device to the inventory.
func (s *Service) Create(ctx context.Context, scope scoped.Scope, in DeviceInput) (*Device, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	id, err := scoped.InsertReturningID(ctx, s.pool, scope.Insert(Table, map[string]any{
		"name":                  in.Name,
		"serial_number":         in.SerialNumber,
		"model":                 in.Model,
		"status":                in.Status,
		"purchase_price_cents":  in.PurchasePriceCents,
		"estimated_value_cents": in.EstimatedValueCents,
	}))
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, scope, id)
}

// Update rewrites a device's editable fields.
func (s *Service) Update(ctx context.Context, scope scoped.Scope, id uuid.UUID, in DeviceInput) (*Device, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	err := scoped.Exec(ctx, s.pool, scope.Update(Table, id, map[string]any{
		"name":                  in.Name,
		"serial_number":         in.SerialNumber,
		"model":                 in.Model,
		"status":                in.Status,
		"purchase_price_cents":  in.PurchasePriceCents,
		"estimated_value_cents": in.EstimatedValueCents,
	}))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return s.Get(ctx, scope, id)
}

// Assign hands a device to a person. The person must exist in the same
// workspace; a person id from another tenant reads as missing.
func (s *Service) Assign(ctx context.Context, scope scoped.Scope, deviceID, personID uuid.UUID) (*Device, error) {
	var count int
	err := scoped.Get(ctx, s.pool, scope.CountWhere(people.Table, "id = $1", []any{personID}), &count)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrPersonNotFound
	}

	err = scoped.Exec(ctx, s.pool, scope.Update(Table, deviceID, map[string]any{
		"assigned_person_id": personID,
		"status":             StatusAssigned,
	}))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return s.Get(ctx, scope, deviceID)
}

// Unassign takes a device back into the active pool.
func (s *Service) Unassign(ctx context.Context, scope scoped.Scope, deviceID uuid.UUID) (*Device, error) {
	err := scoped.Exec(ctx, s.pool, scope.Update(Table, deviceID, map[string]any{
		"assigned_person_id": nil,
		"status":             StatusActive,
	}))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return s.Get(ctx, scope, deviceID)
}

// Delete removes a device from the inventory entirely. Most workflows
// should retire or sell instead; deletion is for rows created by
// mistake.
func (s *Service) Delete(ctx context.Context, scope scoped.Scope, id uuid.UUID) error {
	err := scoped.Exec(ctx, s.pool, scope.Delete(Table, id))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return err
	}
	return nil
}
