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

func (h *Handler) createVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	vault, err := h.services.VaultService.CreateVault(ctx, userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, vault, http.StatusCreated)
}

func (h *Handler) listVaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vaults, err := h.services.VaultService.ListVaults(ctx, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, vaults, http.StatusOK)
}

func (h *Handler) getVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vaultID, err := uuid.Parse(chi.URLParam(r, "vaultID"))
	if err != nil {
		http.Error(w, "invalid vault id", http.StatusBadRequest)
		return
	}

	vault, err := h.services.VaultService.GetVault(ctx, userID, vaultID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, vault, http.StatusOK)
}

func (h *Handler) updateVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vaultID, err := uuid.Parse(chi.URLParam(r, "vaultID"))
	if err != nil {
		http.Error(w, "invalid vault id", http.StatusBadRequest)
		return
	}

	var update models.VaultUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	vault, err := h.services.VaultService.UpdateVault(ctx, userID, vaultID, update)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, vault, http.StatusOK)
}

func (h *Handler) deleteVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vaultID, err := uuid.Parse(chi.URLParam(r, "vaultID"))
	if err != nil {
		http.Error(w, "invalid vault id", http.StatusBadRequest)
		return
	}

	if err := h.services.VaultService.DeleteVault(ctx, userID, vaultID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	folder, err := h.services.VaultService.CreateFolder(ctx, userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, folder, http.StatusCreated)
}

func (h *Handler) listFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vaultID, err := uuid.Parse(chi.URLParam(r, "vaultID"))
	if err != nil {
		http.Error(w, "invalid vault id", http.StatusBadRequest)
		return
	}

	folders, err := h.services.VaultService.ListFolders(ctx, userID, vaultID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, folders, http.StatusOK)
}

func (h *Handler) moveFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "folderID"))
	if err != nil {
		http.Error(w, "invalid folder id", http.StatusBadRequest)
		return
	}

	var req struct {
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.VaultService.MoveFolder(ctx, userID, folderID, req.ParentID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
