package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.AuthService.Register(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, user, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	result, err := h.services.AuthService.Login(ctx, req, r.UserAgent(), clientIP(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) verifyMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.MFAVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	result, err := h.services.AuthService.VerifyMFA(ctx, req, r.UserAgent(), clientIP(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) setupTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.services.AuthService.SetupTOTP(ctx, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) confirmTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.ConfirmTOTP(ctx, userID, req.Code); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	pair, err := h.services.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, pair, http.StatusOK)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.Logout(ctx, req.RefreshToken); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req struct {
		models.ChangePasswordRequest
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.ChangePassword(ctx, userID, req.ChangePasswordRequest, req.RefreshToken); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.services.AuthService.DeleteAccount(ctx, userID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	sessions, err := h.services.AuthService.ListSessions(ctx, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, sessions, http.StatusOK)
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.RevokeSession(ctx, userID, sessionID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// clientIP picks the originating address: the first X-Forwarded-For hop when
// a proxy set one, otherwise the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
