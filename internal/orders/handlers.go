package orders

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

// HandleListOrders handles GET /api/v1/orders
func HandleListOrders(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanViewWorkspace, "You do not have access to this workspace")
		if !ok {
			return
		}

		service := NewService(pool)
		orders, err := service.List(ctx, scope, r.URL.Query().Get("status"))
		if err != nil {
			if errors.Is(err, ErrInvalidStatus) {
				apperrors.WriteBadRequest(w, r, "Invalid order status")
				return
			}
			log.Error().Err(err).Msg("Failed to list orders")
			apperrors.WriteInternalError(w, r, "Failed to list orders")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"orders": orders,
		})
	}
}

// HandleGetOrder handles GET /api/v1/orders/{order_id}
func HandleGetOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanViewWorkspace, "You do not have access to this workspace")
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid order ID")
			return
		}

		service := NewService(pool)
		order, err := service.Get(ctx, scope, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				apperrors.WriteNotFound(w, r, "Order not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get order")
			apperrors.WriteInternalError(w, r, "Failed to get order")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"order": order,
		})
	}
}

// HandleCreateOrder handles POST /api/v1/orders
func HandleCreateOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanManageOrders, "Your role cannot place orders")
		if !ok {
			return
		}

		var in CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		order, err := service.Create(ctx, scope, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrNegativeTotal):
				apperrors.WriteBadRequest(w, r, err.Error())
			default:
				log.Error().Err(err).Msg("Failed to create order")
				apperrors.WriteInternalError(w, r, "Failed to create order")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"order": order,
		})
	}
}

// HandleUpdateOrder handles PUT /api/v1/orders/{order_id}
func HandleUpdateOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanManageOrders, "Your role cannot place orders")
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid order ID")
			return
		}

		var in UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		order, err := service.Update(ctx, scope, orderID, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrNegativeTotal):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrOrderNotFound):
				apperrors.WriteNotFound(w, r, "Order not found")
			case errors.Is(err, ErrNotEditable):
				apperrors.WriteConflict(w, r, "Only draft orders can be edited")
			default:
				log.Error().Err(err).Msg("Failed to update order")
				apperrors.WriteInternalError(w, r, "Failed to update order")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"order": order,
		})
	}
}

// handleTransition is the shared shape of the four status endpoints.
func handleTransition(pool *pgxpool.Pool, allowed func(authz.Role) bool, denied, to string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, allowed, denied)
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid order ID")
			return
		}

		service := NewService(pool)
		order, err := service.SetStatus(ctx, scope, orderID, to)
		if err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				apperrors.WriteNotFound(w, r, "Order not found")
			case errors.Is(err, ErrInvalidTransition):
				apperrors.WriteConflict(w, r, "Order cannot move to "+to+" from its current status")
			default:
				log.Error().Err(err).Str("to", to).Msg("Failed to change order status")
				apperrors.WriteInternalError(w, r, "Failed to change order status")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"order": order,
		})
	}
}

// HandleSubmitOrder handles POST /api/v1/orders/{order_id}/submit
func HandleSubmitOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return handleTransition(pool, authz.CanManageOrders, "Your role cannot place orders", StatusSubmitted)
}

// HandleApproveOrder handles POST /api/v1/orders/{order_id}/approve
func HandleApproveOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return handleTransition(pool, authz.CanApproveOrders, "Only owners and admins can approve orders", StatusApproved)
}

// HandleFulfillOrder handles POST /api/v1/orders/{order_id}/fulfill
func HandleFulfillOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return handleTransition(pool, authz.CanApproveOrders, "Only owners and admins can fulfill orders", StatusFulfilled)
}

// HandleCancelOrder handles POST /api/v1/orders/{order_id}/cancel
func HandleCancelOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return handleTransition(pool, authz.CanManageOrders, "Your role cannot place orders", StatusCancelled)
}

// HandleDeleteOrder handles DELETE /api/v1/orders/{order_id}
func HandleDeleteOrder(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		scope, ok := requestScope(w, r, pool, authz.CanDeleteFleetRows, "Your role cannot delete orders")
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid order ID")
			return
		}

		service := NewService(pool)
		if err := service.Delete(ctx, scope, orderID); err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				apperrors.WriteNotFound(w, r, "Order not found")
			case errors.Is(err, ErrNotEditable):
				apperrors.WriteConflict(w, r, "Only draft and cancelled orders can be deleted")
			default:
				log.Error().Err(err).Msg("Failed to delete order")
				apperrors.WriteInternalError(w, r, "Failed to delete order")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
