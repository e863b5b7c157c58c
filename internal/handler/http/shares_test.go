package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vaultkeeper/vaultkeeper/internal/service"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func TestShareSecret_Created(t *testing.T) {
	_, auth, _, _, shares, router := testHandler(t)

	userID := uuid.New()
	secretID := uuid.New()
	grantID := uuid.New()
	auth.EXPECT().Authenticate(gomock.Any(), testAccessToken).Return(userID, nil)
	shares.EXPECT().
		Share(gomock.Any(), userID, secretID, gomock.Any()).
		Return(models.ShareGrant{ID: grantID, SharedBy: userID}, nil)

	body := `{"recipient":{"kind":"user","id":"` + uuid.NewString() + `"},"item_key_wrapped":"enc:k"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/secrets/"+secretID.String()+"/shares", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), grantID.String())
}

func TestCreateShareLink_TokenReturnedOnce(t *testing.T) {
	_, auth, _, _, shares, router := testHandler(t)

	userID := uuid.New()
	secretID := uuid.New()
	auth.EXPECT().Authenticate(gomock.Any(), testAccessToken).Return(userID, nil)
	shares.EXPECT().
		CreateLink(gomock.Any(), userID, secretID, gomock.Any()).
		Return(models.ShareLinkResult{
			Grant:      models.ShareGrant{ID: uuid.New()},
			ShareToken: "capability-token",
		}, nil)

	body := `{"item_key_wrapped":"enc:k","expires_in_hours":48}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/secrets/"+secretID.String()+"/shares/link", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"share_token":"capability-token"`)
}

func TestRedeemShareLink_NoAuthRequired(t *testing.T) {
	_, _, _, _, shares, router := testHandler(t)

	shares.EXPECT().
		RedeemLink(gomock.Any(), "capability-token").
		Return(models.SharedSecret{
			Grant:  models.ShareGrant{ID: uuid.New(), ViewCount: 1},
			Secret: models.Secret{ID: uuid.New(), DataCiphertext: "enc:data"},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shares/links/capability-token", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "enc:data")
}

func TestRedeemShareLink_UnknownTokenNotFound(t *testing.T) {
	_, _, _, _, shares, router := testHandler(t)

	shares.EXPECT().
		RedeemLink(gomock.Any(), "no-such-token").
		Return(models.SharedSecret{}, service.ErrShareGone)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shares/links/no-such-token", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Expired and spent links answer 400, not 404: the token resolved, the
// grant just cannot be used any more.
func TestRedeemShareLink_ExpiredAndSpentAreBadRequest(t *testing.T) {
	tests := []struct {
		name  string
		token string
		err   error
	}{
		{name: "expired", token: "expired-token", err: service.ErrShareExpired},
		{name: "spent", token: "spent-token", err: service.ErrShareExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, _, shares, router := testHandler(t)

			shares.EXPECT().
				RedeemLink(gomock.Any(), tt.token).
				Return(models.SharedSecret{}, tt.err)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/shares/links/"+tt.token, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateShareGrant_ForeignGrant(t *testing.T) {
	_, auth, _, _, shares, router := testHandler(t)

	userID := uuid.New()
	grantID := uuid.New()
	auth.EXPECT().Authenticate(gomock.Any(), testAccessToken).Return(userID, nil)
	shares.EXPECT().
		UpdateGrant(gomock.Any(), userID, grantID, gomock.Any()).
		Return(models.ShareGrant{}, service.ErrAccessDenied)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/api/v1/shares/"+grantID.String(), `{"permission":"write"}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRevokeShareGrant_Success(t *testing.T) {
	_, auth, _, _, shares, router := testHandler(t)

	userID := uuid.New()
	grantID := uuid.New()
	auth.EXPECT().Authenticate(gomock.Any(), testAccessToken).Return(userID, nil)
	shares.EXPECT().Revoke(gomock.Any(), userID, grantID).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/shares/"+grantID.String(), ""))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSharedWithMe_Listed(t *testing.T) {
	_, auth, _, _, shares, router := testHandler(t)

	userID := uuid.New()
	auth.EXPECT().Authenticate(gomock.Any(), testAccessToken).Return(userID, nil)
	shares.EXPECT().
		SharedWithMe(gomock.Any(), userID).
		Return([]models.SharedSecret{
			{Grant: models.ShareGrant{ID: uuid.New()}, Secret: models.Secret{ID: uuid.New()}},
		}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/shares/inbox", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grant")
}
