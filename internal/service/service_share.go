package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

const (
	// shareTokenBytes is the entropy of a link capability token.
	shareTokenBytes = 32

	// defaultLinkTTL applies when a link request carries no expiry.
	defaultLinkTTL = 24 * time.Hour
)

// shareService is the concrete implementation of [ShareService].
type shareService struct {
	shares  store.ShareRepository
	secrets store.SecretRepository

	authorizer Authorizer
	audit      AuditSink

	logger *logger.Logger
}

// NewShareService constructs a [ShareService].
func NewShareService(shares store.ShareRepository, secrets store.SecretRepository, authorizer Authorizer, audit AuditSink, logger *logger.Logger) ShareService {
	return &shareService{
		shares:     shares,
		secrets:    secrets,
		authorizer: authorizer,
		audit:      audit,
		logger:     logger,
	}
}

// Share issues a grant addressed to a specific user or team. Link grants go
// through CreateLink, which mints the capability token.
func (s *shareService) Share(ctx context.Context, userID, secretID uuid.UUID, req models.ShareSecretRequest) (models.ShareGrant, error) {
	log := logger.FromContext(ctx)

	if !req.Recipient.Valid() || req.Recipient.Kind == models.RecipientLink {
		return models.ShareGrant{}, ErrInvalidDataProvided
	}
	if req.ItemKeyWrapped == "" {
		return models.ShareGrant{}, ErrInvalidDataProvided
	}
	permission := req.Permission
	if permission == "" {
		permission = models.SharePermissionRead
	}

	if _, err := s.shareableSecret(ctx, userID, secretID); err != nil {
		return models.ShareGrant{}, err
	}

	grant, err := s.shares.Create(ctx, models.ShareGrant{
		SecretID:       secretID,
		SharedBy:       userID,
		Recipient:      req.Recipient,
		ItemKeyWrapped: req.ItemKeyWrapped,
		Permission:     permission,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		log.Err(err).Msg("share grant creation failed")
		return models.ShareGrant{}, fmt.Errorf("share grant creation failed: %w", err)
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "share.created",
		ResourceType: "share",
		ResourceID:   grant.ID.String(),
		Metadata: map[string]any{
			"secret_id":      secretID.String(),
			"recipient_kind": string(req.Recipient.Kind),
		},
	})

	return grant, nil
}

// CreateLink issues an anonymous link grant with a fresh capability token.
// The raw token appears only in the result; redeeming it is the only way to
// use it.
func (s *shareService) CreateLink(ctx context.Context, userID, secretID uuid.UUID, req models.CreateShareLinkRequest) (models.ShareLinkResult, error) {
	log := logger.FromContext(ctx)

	if req.ItemKeyWrapped == "" {
		return models.ShareLinkResult{}, ErrInvalidDataProvided
	}
	if req.MaxViews != nil && *req.MaxViews < 1 {
		return models.ShareLinkResult{}, ErrInvalidDataProvided
	}

	if _, err := s.shareableSecret(ctx, userID, secretID); err != nil {
		return models.ShareLinkResult{}, err
	}

	token, err := utils.RandomToken(shareTokenBytes)
	if err != nil {
		log.Err(err).Msg("share token generation failed")
		return models.ShareLinkResult{}, fmt.Errorf("share token generation failed: %w", err)
	}

	ttl := defaultLinkTTL
	if req.ExpiresInHours > 0 {
		ttl = time.Duration(req.ExpiresInHours) * time.Hour
	}
	expiresAt := time.Now().Add(ttl)

	grant, err := s.shares.Create(ctx, models.ShareGrant{
		SecretID:       secretID,
		SharedBy:       userID,
		Recipient:      models.LinkRecipient(),
		ItemKeyWrapped: req.ItemKeyWrapped,
		Permission:     models.SharePermissionRead,
		ShareToken:     token,
		MaxViews:       req.MaxViews,
		ExpiresAt:      &expiresAt,
	})
	if err != nil {
		log.Err(err).Msg("share link creation failed")
		return models.ShareLinkResult{}, fmt.Errorf("share link creation failed: %w", err)
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "share.link_created",
		ResourceType: "share",
		ResourceID:   grant.ID.String(),
		Metadata:     map[string]any{"secret_id": secretID.String()},
	})

	return models.ShareLinkResult{Grant: grant, ShareToken: token}, nil
}

// RedeemLink spends one view of a link grant and returns the shared secret.
//
// Failure classes are distinct: an unknown token and a trashed or purged
// secret redeem to ErrShareGone, while a link that resolved but is past its
// expiry or out of views gets ErrShareExpired or ErrShareExhausted. The view
// is consumed through a guarded single-row UPDATE, so concurrent redemptions
// of a link with one remaining view resolve to exactly one success; the
// losers see ErrShareExhausted.
func (s *shareService) RedeemLink(ctx context.Context, token string) (models.SharedSecret, error) {
	log := logger.FromContext(ctx)

	shared, err := s.shares.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrShareNotFound) {
			return models.SharedSecret{}, ErrShareGone
		}
		log.Err(err).Msg("share lookup by token failed")
		return models.SharedSecret{}, fmt.Errorf("share lookup by token failed: %w", err)
	}
	if shared.Secret.IsDeleted {
		return models.SharedSecret{}, ErrShareGone
	}

	now := time.Now()
	if shared.Grant.Expired(now) {
		return models.SharedSecret{}, ErrShareExpired
	}
	if shared.Grant.MaxViews != nil && shared.Grant.ViewCount >= *shared.Grant.MaxViews {
		return models.SharedSecret{}, ErrShareExhausted
	}

	if err := s.shares.ConsumeView(ctx, shared.Grant.ID, now); err != nil {
		if errors.Is(err, store.ErrShareConsumed) {
			// The guard lost between the read above and the update: either
			// a concurrent redemption took the last view or the expiry
			// passed in the meantime.
			if shared.Grant.MaxViews != nil {
				return models.SharedSecret{}, ErrShareExhausted
			}
			return models.SharedSecret{}, ErrShareExpired
		}
		log.Err(err).Msg("consuming share view failed")
		return models.SharedSecret{}, fmt.Errorf("consuming share view failed: %w", err)
	}
	shared.Grant.ViewCount++

	s.audit.Record(ctx, models.AuditRecord{
		Action:       "share.redeemed",
		ResourceType: "share",
		ResourceID:   shared.Grant.ID.String(),
	})

	return shared, nil
}

// SharedWithMe returns live grants addressed to the caller.
func (s *shareService) SharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedSecret, error) {
	return s.shares.ListForUser(ctx, userID, time.Now())
}

// History returns every grant ever issued for a secret the caller owns.
func (s *shareService) History(ctx context.Context, userID, secretID uuid.UUID) ([]models.ShareGrant, error) {
	secret, err := s.secrets.FindByID(ctx, secretID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, secret.VaultID); err != nil {
		return nil, err
	}

	return s.shares.HistoryBySecret(ctx, secretID)
}

// UpdateGrant lets the original sharer adjust permission or expiry.
func (s *shareService) UpdateGrant(ctx context.Context, userID, grantID uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error) {
	if update.Permission == nil && update.ExpiresAt == nil {
		return models.ShareGrant{}, ErrInvalidDataProvided
	}

	grant, err := s.shares.FindByID(ctx, grantID)
	if err != nil {
		return models.ShareGrant{}, err
	}
	if grant.SharedBy != userID {
		return models.ShareGrant{}, ErrAccessDenied
	}

	return s.shares.Update(ctx, grantID, update)
}

// Revoke removes a grant the caller issued. Revocation is immediate: the
// next redemption or listing no longer sees it.
func (s *shareService) Revoke(ctx context.Context, userID, grantID uuid.UUID) error {
	grant, err := s.shares.FindByID(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.SharedBy != userID {
		return ErrAccessDenied
	}

	if err := s.shares.Delete(ctx, grantID); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "share.revoked",
		ResourceType: "share",
		ResourceID:   grantID.String(),
		Metadata:     map[string]any{"secret_id": grant.SecretID.String()},
	})

	return nil
}

// shareableSecret checks that the caller owns the secret's vault and the
// secret is not in the trash.
func (s *shareService) shareableSecret(ctx context.Context, userID, secretID uuid.UUID) (models.Secret, error) {
	secret, err := s.secrets.FindByID(ctx, secretID)
	if err != nil {
		return models.Secret{}, err
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, secret.VaultID); err != nil {
		return models.Secret{}, err
	}
	if secret.IsDeleted {
		return models.Secret{}, store.ErrSecretNotFound
	}

	return secret, nil
}
