package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func (h *Handler) createSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.CreateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	secret, err := h.services.SecretService.Create(ctx, userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secret, http.StatusCreated)
}

func (h *Handler) getSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	secret, err := h.services.SecretService.Get(ctx, userID, secretID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secret, http.StatusOK)
}

// listSecrets reads the listing filter from query parameters: vault_id,
// folder_id, category, state (active/archived/deleted), sort_by, sort_desc.
func (h *Handler) listSecrets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	filter, err := secretFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	secrets, err := h.services.SecretService.List(ctx, userID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secrets, http.StatusOK)
}

func (h *Handler) updateSecret(w http.ResponseWriter, r *http.Request) {
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

	var update models.SecretUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	secret, err := h.services.SecretService.Update(ctx, userID, secretID, update)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secret, http.StatusOK)
}

func (h *Handler) archiveSecret(w http.ResponseWriter, r *http.Request) {
	h.secretAction(w, r, h.services.SecretService.Archive)
}

func (h *Handler) unarchiveSecret(w http.ResponseWriter, r *http.Request) {
	h.secretAction(w, r, h.services.SecretService.Unarchive)
}

func (h *Handler) deleteSecret(w http.ResponseWriter, r *http.Request) {
	h.secretAction(w, r, h.services.SecretService.Delete)
}

func (h *Handler) restoreSecret(w http.ResponseWriter, r *http.Request) {
	h.secretAction(w, r, h.services.SecretService.Restore)
}

func (h *Handler) purgeSecret(w http.ResponseWriter, r *http.Request) {
	h.secretAction(w, r, h.services.SecretService.Purge)
}

func (h *Handler) moveSecret(w http.ResponseWriter, r *http.Request) {
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

	var req models.MoveSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	secret, err := h.services.SecretService.Move(ctx, userID, secretID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secret, http.StatusOK)
}

func (h *Handler) duplicateSecret(w http.ResponseWriter, r *http.Request) {
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

	var req models.DuplicateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	secret, err := h.services.SecretService.Duplicate(ctx, userID, secretID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, secret, http.StatusCreated)
}

func (h *Handler) secretVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	versions, err := h.services.SecretService.Versions(ctx, userID, secretID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, versions, http.StatusOK)
}

// secretAction runs one of the no-body lifecycle transitions and answers 204.
func (h *Handler) secretAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID, secretID uuid.UUID) error) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	secretID, ok := secretIDParam(w, r)
	if !ok {
		return
	}

	if err := action(ctx, userID, secretID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func secretIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "secretID"))
	if err != nil {
		http.Error(w, "invalid secret id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func secretFilterFromQuery(r *http.Request) (models.SecretFilter, error) {
	q := r.URL.Query()

	var filter models.SecretFilter

	if raw := q.Get("vault_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return models.SecretFilter{}, errors.New("invalid vault_id")
		}
		filter.VaultID = &id
	}
	if raw := q.Get("folder_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return models.SecretFilter{}, errors.New("invalid folder_id")
		}
		filter.FolderID = &id
	}
	if raw := q.Get("category"); raw != "" {
		category := models.SecretType(raw)
		if !category.Valid() {
			return models.SecretFilter{}, errors.New("invalid category")
		}
		filter.Category = &category
	}

	switch state := models.SecretState(q.Get("state")); state {
	case "", models.SecretStateActive:
		filter.State = models.SecretStateActive
	case models.SecretStateArchived, models.SecretStateDeleted:
		filter.State = state
	default:
		return models.SecretFilter{}, errors.New("invalid state")
	}

	filter.SortBy = q.Get("sort_by")
	filter.SortDesc = q.Get("sort_desc") == "true"

	return filter, nil
}
