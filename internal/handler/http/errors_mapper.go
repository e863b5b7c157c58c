package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/service"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrAuthentication:          http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrMFACodeInvalid:          http.StatusUnauthorized,
	service.ErrAccountLocked:           http.StatusLocked,
	service.ErrTooManyMFAAttempts:      http.StatusTooManyRequests,
	service.ErrAccessDenied:            http.StatusForbidden,
	service.ErrFolderCycle:             http.StatusConflict,
	service.ErrSecretNotInTrash:        http.StatusConflict,
	service.ErrShareGone:               http.StatusNotFound,
	service.ErrShareExpired:            http.StatusBadRequest,
	service.ErrShareExhausted:          http.StatusBadRequest,

	store.ErrEmailAlreadyExists: http.StatusConflict,
	store.ErrUserNotFound:       http.StatusNotFound,
	store.ErrSessionNotFound:    http.StatusNotFound,
	store.ErrMFAMethodNotFound:  http.StatusNotFound,
	store.ErrVaultNotFound:      http.StatusNotFound,
	store.ErrFolderNotFound:     http.StatusNotFound,
	store.ErrSecretNotFound:     http.StatusNotFound,
	store.ErrShareNotFound:      http.StatusNotFound,
	store.ErrShareConsumed:      http.StatusBadRequest,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommittingTransaction: http.StatusInternalServerError,
	store.ErrScanningRow:           http.StatusInternalServerError,
	store.ErrScanningRows:          http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// respondError maps a service error to its HTTP status and writes the
// response. Locked accounts additionally carry a Retry-After header so the
// client knows when a retry becomes useful. 5xx responses never echo the
// internal error text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	status := statusFromError(err)

	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(locked.RetryAfter.Seconds())+1))
	}

	if status >= http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
		http.Error(w, http.StatusText(status), status)
		return
	}

	log.Debug().Err(err).Int("status", status).Msg("request rejected")
	http.Error(w, err.Error(), status)
}
