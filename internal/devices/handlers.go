package devices

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/scoped"
)

type AssignRequest struct {
	PersonID uuid.UUID `json:"person_id"`
}

// requestScope resolves the principal, checks the capability, and
// derives the workspace scope. Every device handler starts here.
func requestScope(w http.ResponseWriter, r *http.Request, pool *pgxpool.Pool, allowed func(authz.Role) bool, denied string) (scoped.Scope, bool) {
	p, ok := identity.RequirePrincipal(w, r, pool)
	if !ok {
		return scoped.Scope{}, false
	}
	if !allowed(p.Role) {
		apperrors.WriteForbidden(w, r, denied)
		return scoped.Scope{}, false
	}

	scope, err := scoped.FromContext(r.Context())
	if err != nil {
		apperrors.WriteNotFound(w, r, "No workspace on this host")
		return scoped.Scope{}, false
	}

	return scope, true
}

// HandleListDevices handles GET /api/v1/devices
func HandleListDevices(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanViewWorkspace, "You do not have access to this workspace")
		if !ok {
			return
		}

		service := NewService(pool)
		devices, err := service.List(ctx, scope, r.URL.Query().Get("status"))
		if err != nil {
			if errors.Is(err, ErrInvalidStatus) {
				apperrors.WriteBadRequest(w, r, "Invalid device status")
				return
			}
			log.Error().Err(err).Msg("Failed to list devices")
			apperrors.WriteInternalError(w, r, "Failed to list devices")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"devices": devices,
		})
	}
}

// HandleGetDevice handles GET /api/v1/devices/{device_id}
func HandleGetDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanViewWorkspace, "You do not have access to this workspace")
		if !ok {
			return
		}

		deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid device ID")
			return
		}

		service := NewService(pool)
		device, err := service.Get(ctx, scope, deviceID)
		if err != nil {
			if errors.Is(err, ErrDeviceNotFound) {
				apperrors.WriteNotFound(w, r, "Device not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get device")
			apperrors.WriteInternalError(w, r, "Failed to get device")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"device": device,
		})
	}
}

// HandleCreateDevice handles POST /api/v1/devices
func HandleCreateDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanEditFleet, "Your role cannot edit the inventory")
		if !ok {
			return
		}

		var in DeviceInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		device, err := service.Create(ctx, scope, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameRequired),
				errors.Is(err, ErrInvalidStatus),
				errors.Is(err, ErrNegativePrice):
				apperrors.WriteBadRequest(w, r, err.Error())
			default:
				log.Error().Err(err).Msg("Failed to create device")
				apperrors.WriteInternalError(w, r, "Failed to create device")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"device": device,
		})
	}
}

// HandleUpdateDevice handles PUT /api/v1/devices/{device_id}
func HandleUpdateDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanEditFleet, "Your role cannot edit the inventory")
		if !ok {
			return
		}

		deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid device ID")
			return
		}

		var in DeviceInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		device, err := service.Update(ctx, scope, deviceID, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameRequired),
				errors.Is(err, ErrInvalidStatus),
				errors.Is(err, ErrNegativePrice):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrDeviceNotFound):
				apperrors.WriteNotFound(w, r, "Device not found")
			default:
				log.Error().Err(err).Msg("Failed to update device")
				apperrors.WriteInternalError(w, r, "Failed to update device")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"device": device,
		})
	}
}

// HandleAssignDevice handles POST /api/v1/devices/{device_id}/assign
func HandleAssignDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanEditFleet, "Your role cannot edit the inventory")
		if !ok {
			return
		}

		deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid device ID")
			return
		}

		var req AssignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.PersonID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "person_id is required")
			return
		}

		service := NewService(pool)
		device, err := service.Assign(ctx, scope, deviceID, req.PersonID)
		if err != nil {
			switch {
			case errors.Is(err, ErrPersonNotFound):
				apperrors.WriteNotFound(w, r, "Person not found")
			case errors.Is(err, ErrDeviceNotFound):
				apperrors.WriteNotFound(w, r, "Device not found")
			default:
				log.Error().Err(err).Msg("Failed to assign device")
				apperrors.WriteInternalError(w, r, "Failed to assign device")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"device": device,
		})
	}
}

// HandleUnassignDevice handles POST /api/v1/devices/{device_id}/unassign
func HandleUnassignDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanEditFleet, "Your role cannot edit the inventory")
		if !ok {
			return
		}

		deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid device ID")
			return
		}

		service := NewService(pool)
		device, err := service.Unassign(ctx, scope, deviceID)
		if err != nil {
			if errors.Is(err, ErrDeviceNotFound) {
				apperrors.WriteNotFound(w, r, "Device not found")
				return
			}
			log.Error().Err(err).Msg("Failed to unassign device")
			apperrors.WriteInternalError(w, r, "Failed to unassign device")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"device": device,
		})
	}
}

// HandleDeleteDevice handles DELETE /api/v1/devices/{device_id}
func HandleDeleteDevice(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanDeleteFleetRows, "Your role cannot delete inventory rows")
		if !ok {
			return
		}

		deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid device ID")
			return
		}

		service := NewService(pool)
		if err := service.Delete(ctx, scope, deviceID); err != nil {
			if errors.Is(err, ErrDeviceNotFound) {
				apperrors.WriteNotFound(w, r, "Device not found")
				return
			}
			log.Error().Err(err).Msg("Failed to delete device")
			apperrors.WriteInternalError(w, r, "Failed to delete device")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
