package http

import (
	"log/slog"
	"net/http"

	"github.com/potrail/identity/internal/service"
	"github.com/potrail/identity/pkg/middleware"
)

// MFAHandler handles HTTP requests for TOTP enrollment and verification.
type MFAHandler struct {
	service *service.IdentityService
	logger  *slog.Logger
}

// NewMFAHandler creates a new MFA HTTP handler.
func NewMFAHandler(svc *service.IdentityService, logger *slog.Logger) *MFAHandler {
	return &MFAHandler{service: svc, logger: logger}
}

// VerifyCodeRequest is the JSON request body for TOTP code verification.
type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// EnrollmentResponse carries the data an authenticator app needs.
type EnrollmentResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Enable handles POST /api/v1/auth/mfa/enable
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())

	enrollment, err := h.service.EnableMFA(r.Context(), accountID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: EnrollmentResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
	}})
}

// Disable handles POST /api/v1/auth/mfa/disable
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())

	if err := h.service.DisableMFA(r.Context(), accountID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "disabled"}})
}

// VerifyCode handles POST /api/v1/auth/mfa/verify-code
func (h *MFAHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	accountID := middleware.UserIDFromContext(r.Context())
	if err := h.service.VerifyMFACode(r.Context(), accountID, req.Code, clientIP(r)); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "verified"}})
}

// QRCode handles GET /api/v1/auth/mfa/link-qrcode.svg
func (h *MFAHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())

	svg, err := h.service.MFAQRCode(r.Context(), accountID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}
