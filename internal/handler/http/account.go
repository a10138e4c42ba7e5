package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/potrail/identity/internal/service"
	"github.com/potrail/identity/pkg/middleware"
)

// AccountHandler handles the admin account management endpoints.
type AccountHandler struct {
	service *service.IdentityService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.IdentityService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// UpdateAccountRequest is the JSON request body for an admin account
// update. Absent fields are left unchanged.
type UpdateAccountRequest struct {
	FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Role           *string `json:"role" validate:"omitempty,oneof=user admin"`
	EmailConfirmed *bool   `json:"email_confirmed"`
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: accounts})
}

// Get handles GET /api/v1/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: account})
}

// Update handles PATCH /api/v1/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), service.UpdateAccountInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Role:           req.Role,
		EmailConfirmed: req.EmailConfirmed,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: account})
}

// Delete handles DELETE /api/v1/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	// Admins cannot remove their own account.
	if accountID == middleware.UserIDFromContext(r.Context()) {
		writeJSON(w, http.StatusForbidden, response{
			Error: &errorResponse{Code: "FORBIDDEN", Message: "cannot delete your own account"},
		})
		return
	}

	if err := h.service.DeleteAccount(r.Context(), accountID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": accountID, "status": "deleted"}})
}

// ForcePasswordReset handles POST /api/v1/accounts/{id}/force-password-reset
func (h *AccountHandler) ForcePasswordReset(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	if err := h.service.ForcePasswordReset(r.Context(), accountID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": accountID, "status": "password_reset_required"}})
}

// DisableMFA handles POST /api/v1/accounts/{id}/disable-mfa
func (h *AccountHandler) DisableMFA(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	if err := h.service.AdminDisableMFA(r.Context(), accountID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": accountID, "status": "mfa_disabled"}})
}
