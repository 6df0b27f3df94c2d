package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/netutil"
	"authcore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 16

// KeyPublisher exposes the public half of the access token signing key.
type KeyPublisher interface {
	PublicJWK() (map[string]any, bool)
}

type Handler struct {
	Auth     service.AuthService
	MFA      service.MFAService
	Security service.SecurityService
	Keys     KeyPublisher
}

func clientIP(r *http.Request) string {
	// RemoteAddr is already rewritten by RealIP when proxies are trusted.
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

func deviceFrom(r *http.Request) domain.DeviceInfo {
	return domain.DeviceInfo{UserAgent: r.UserAgent(), IP: clientIP(r)}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func mustPrincipal(w http.ResponseWriter, r *http.Request) (*principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrInvalidAccessToken)
	}
	return p, ok
}

// ====== Public auth endpoints ======

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Auth.Register(r.Context(), req, deviceFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Auth.Login(r.Context(), req, deviceFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Auth.Refresh(r.Context(), req.RefreshToken, deviceFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	// Same answer whether or not the address exists.
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordStrengthRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.Security.Strength(req.Password))
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	keys := []map[string]any{}
	if h.Keys != nil {
		if jwk, ok := h.Keys.PublicJWK(); ok {
			keys = append(keys, jwk)
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// ====== Authenticated endpoints ======

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.LogoutRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if err := h.Auth.Logout(r.Context(), p.AccessToken, req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if err := h.Auth.ResendVerification(r.Context(), p.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword, p.SessionID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	res, err := h.Auth.Me(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Auth.UpdateEmail(r.Context(), p.UserID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportMe serves the account export as a JSON download.
func (h *Handler) ExportMe(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	res, err := h.Auth.ExportData(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="account-export.json"`)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

// FailedAttempts counts failed logins over ?timeWindow minutes (default 15).
func (h *Handler) FailedAttempts(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	minutes := 15
	if raw := r.URL.Query().Get("timeWindow"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "timeWindow must be a positive number of minutes")
			return
		}
		minutes = n
	}
	count, err := h.Auth.FailedLoginAttempts(r.Context(), p.UserID, time.Duration(minutes)*time.Minute)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FailedAttemptsResponse{Count: count, TimeWindowMinutes: minutes})
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.DisableAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.DisableAccount(r.Context(), p.UserID, req.Password, p.AccessToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	sessions, err := h.Auth.ListSessions(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, domain.ErrSessionNotFound)
		return
	}
	if err := h.Auth.RevokeSession(r.Context(), p.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if p.SessionID == nil {
		writeError(w, r, domain.ErrInvalidAccessToken)
		return
	}
	n, err := h.Auth.RevokeOtherSessions(r.Context(), p.UserID, *p.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RevokedResponse{Revoked: n})
}

func (h *Handler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}
	entries, err := h.Auth.LoginHistory(r.Context(), p.UserID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ====== Two-factor ======

func (h *Handler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	res, err := h.MFA.Enable(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.MFA.Confirm(r.Context(), p.UserID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.TwoFactorDisableRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.MFA.Disable(r.Context(), p.UserID, req.Password, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}
	valid, err := h.MFA.Verify(r.Context(), p.UserID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TwoFactorVerifyResponse{Valid: valid})
}

func (h *Handler) ConsumeBackupCode(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req dto.TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}
	valid, err := h.MFA.ConsumeBackupCode(r.Context(), p.UserID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TwoFactorVerifyResponse{Valid: valid})
}
