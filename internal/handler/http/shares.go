package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func (h *Handler) shareSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	var req models.ShareSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	grant, err := h.services.ShareService.Share(ctx, userID, secretID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, grant, http.StatusCreated)
}

func (h *Handler) createShareLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	var req models.CreateShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	result, err := h.services.ShareService.CreateLink(ctx, userID, secretID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, result, http.StatusCreated)
}

// redeemShareLink is unauthenticated: possession of the token is the
// authorization. Each successful redemption spends one view.
func (h *Handler) redeemShareLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "missing share token", http.StatusBadRequest)
		return
	}

	shared, err := h.services.ShareService.RedeemLink(ctx, token)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, shared, http.StatusOK)
}

func (h *Handler) sharedWithMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	shared, err := h.services.ShareService.SharedWithMe(ctx, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, shared, http.StatusOK)
}

func (h *Handler) shareHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	grants, err := h.services.ShareService.History(ctx, userID, secretID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, grants, http.StatusOK)
}

func (h *Handler) updateShareGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	grantID, ok := grantIDParam(w, r)
	if !ok {
		return
	}

	var update models.ShareGrantUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	grant, err := h.services.ShareService.UpdateGrant(ctx, userID, grantID, update)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, grant, http.StatusOK)
}

func (h *Handler) revokeShareGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	grantID, ok := grantIDParam(w, r)
	if !ok {
		return
	}

	if err := h.services.ShareService.Revoke(ctx, userID, grantID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func grantIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "grantID"))
	if err != nil {
		http.Error(w, "invalid grant id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
