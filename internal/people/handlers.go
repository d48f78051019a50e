package people

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
	"github.com/tryequipped/equipped/internal/validation"
)

// HandleListPeople handles GET /api/v1/people
func HandleListPeople(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanViewWorkspace(p.Role) {
			apperrors.WriteForbidden(w, r, "You do not have access to this workspace")
			return
		}

		scope, err := scoped.FromContext(ctx)
		if err != nil {
			apperrors.WriteNotFound(w, r, "No workspace on this host")
			return
		}

		service := NewService(pool)
		people, err := service.List(ctx, scope)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list people")
			apperrors.WriteInternalError(w, r, "Failed to list people")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"people": people,
		})
	}
}

// HandleGetPerson handles GET /api/v1/people/{person_id}
func HandleGetPerson(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanViewWorkspace(p.Role) {
			apperrors.WriteForbidden(w, r, "You do not have access to this workspace")
			return
		}

		personID, err := uuid.Parse(chi.URLParam(r, "person_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid person ID")
			return
		}

		scope, err := scoped.FromContext(ctx)
		if err != nil {
			apperrors.WriteNotFound(w, r, "No workspace on this host")
			return
		}

		service := NewService(pool)
		person, err := service.Get(ctx, scope, personID)
		if err != nil {
			if errors.Is(err, ErrPersonNotFound) {
				apperrors.WriteNotFound(w, r, "Person not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get person")
			apperrors.WriteInternalError(w, r, "Failed to get person")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"person": person,
		})
	}
}

// HandleCreatePerson handles POST /api/v1/people
func HandleCreatePerson(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanEditFleet(p.Role) {
			apperrors.WriteForbidden(w, r, "Your role cannot edit the directory")
			return
		}

		var in PersonInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		scope, err := scoped.FromContext(ctx)
		if err != nil {
			apperrors.WriteNotFound(w, r, "No workspace on this host")
			return
		}

		service := NewService(pool)
		person, err := service.Create(ctx, scope, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameRequired), errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, err.Error())
			default:
				log.Error().Err(err).Msg("Failed to create person")
				apperrors.WriteInternalError(w, r, "Failed to create person")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"person": person,
		})
	}
}

// HandleUpdatePerson handles PUT /api/v1/people/{person_id}
func HandleUpdatePerson(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanEditFleet(p.Role) {
			apperrors.WriteForbidden(w, r, "Your role cannot edit the directory")
			return
		}

		personID, err := uuid.Parse(chi.URLParam(r, "person_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid person ID")
			return
		}

		var in PersonInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		scope, err := scoped.FromContext(ctx)
		if err != nil {
			apperrors.WriteNotFound(w, r, "No workspace on this host")
			return
		}

		service := NewService(pool)
		person, err := service.Update(ctx, scope, personID, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameRequired), errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrPersonNotFound):
				apperrors.WriteNotFound(w, r, "Person not found")
			default:
				log.Error().Err(err).Msg("Failed to update person")
				apperrors.WriteInternalError(w, r, "Failed to update person")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"person": person,
		})
	}
}

// HandleDeletePerson handles DELETE /api/v1/people/{person_id}
func HandleDeletePerson(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanDeleteFleetRows(p.Role) {
			apperrors.WriteForbidden(w, r, "Your role cannot delete directory entries")
			return
		}

		personID, err := uuid.Parse(chi.URLParam(r, "person_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid person ID")
			return
		}

		scope, err := scoped.FromContext(ctx)
		if err != nil {
			apperrors.WriteNotFound(w, r, "No workspace on this host")
			return
		}

		service := NewService(pool)
		if err := service.Delete(ctx, scope, personID); err != nil {
			if errors.Is(err, ErrPersonNotFound) {
				apperrors.WriteNotFound(w, r, "Person not found")
				return
			}
			log.Error().Err(err).Msg("Failed to delete person")
			apperrors.WriteInternalError(w, r, "Failed to delete person")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
