package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// totpOpts pins the verification parameters all enrollments use. Skew 1
// accepts one 30-second step of clock drift on either side.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// authService is the concrete implementation of [AuthService].
//
// It owns the whole authentication state machine: the lockout counter moves
// through single-statement repository operations, token issuance is pure
// HMAC signing, and every refresh token lives in the session ledger only as
// a SHA-256 fingerprint.
type authService struct {
	users    store.UserRepository
	sessions store.SessionRepository
	mfa      store.MFARepository
	vaults   store.VaultRepository

	cfg   config.App
	audit AuditSink

	logger *logger.Logger
}

// NewAuthService constructs an [AuthService] wired to the given storages and
// populated with security parameters from cfg.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewAuthService(storages *store.Storages, cfg config.App, audit AuditSink, logger *logger.Logger) AuthService {
	return &authService{
		users:    storages.Users,
		sessions: storages.Sessions,
		mfa:      storages.MFA,
		vaults:   storages.Vaults,
		cfg:      cfg,
		audit:    audit,
		logger:   logger,
	}
}

// Register creates a new account and its default personal vault.
//
// The request carries a client-derived auth key, never a password; the
// server bcrypt-hashes that key once more before storage. The wrapped key
// blobs are stored verbatim.
func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	if req.Email == "" || req.CredentialKey == "" || req.WrappedVaultKey == "" {
		log.Error().Str("email", req.Email).Msg("invalid registration data provided")
		return models.User{}, ErrInvalidDataProvided
	}

	hash, err := utils.HashCredential(req.CredentialKey, a.cfg.BcryptCost)
	if err != nil {
		log.Err(err).Msg("credential hashing failed")
		return models.User{}, fmt.Errorf("credential hashing failed: %w", err)
	}

	user, err := a.users.Create(ctx, models.User{
		Email:             req.Email,
		Name:              req.Name,
		CredentialHash:    hash,
		WrappedVaultKey:   req.WrappedVaultKey,
		WrappedPrivateKey: req.WrappedPrivateKey,
		PublicKey:         req.PublicKey,
		KDFIterations:     req.KDFIterations,
		KDFMemory:         req.KDFMemory,
		Status:            models.UserStatusActive,
	})
	if err != nil {
		log.Err(err).Str("email", req.Email).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	// Every account starts with one personal vault so the first secret has
	// somewhere to go.
	if _, err := a.vaults.Create(ctx, models.Vault{
		OwnerID:        user.ID,
		Type:           models.VaultTypePersonal,
		NameCiphertext: "",
		Icon:           "vault",
	}); err != nil {
		log.Err(err).Str("user_id", user.ID.String()).Msg("default vault creation failed")
		return models.User{}, fmt.Errorf("default vault creation failed: %w", err)
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &user.ID,
		Action:       "user.register",
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})

	return user, nil
}

// Login runs the credential check under the lockout policy.
//
// Outcomes:
//   - unknown email or wrong key → ErrAuthentication; each wrong key bumps
//     the per-account failure counter and the attempt that reaches the
//     threshold returns *AccountLockedError instead.
//   - locked account with live lock → *AccountLockedError, credentials not
//     even examined.
//   - locked account with expired lock → lock lifted lazily, check proceeds.
//   - correct key, MFA verified → LoginResult with RequiresMFA and a
//     pending token; no session exists yet.
//   - correct key, no MFA → token pair plus a fresh session.
func (a *authService) Login(ctx context.Context, req models.LoginRequest, deviceInfo, ipAddress string) (models.LoginResult, error) {
	log := logger.FromContext(ctx)

	if req.Email == "" || req.CredentialKey == "" {
		return models.LoginResult{}, ErrInvalidDataProvided
	}

	user, err := a.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.LoginResult{}, ErrAuthentication
		}
		log.Err(err).Msg("user search by email failed")
		return models.LoginResult{}, fmt.Errorf("user search by email failed: %w", err)
	}

	now := time.Now()
	if user.Locked(now) {
		return models.LoginResult{}, &AccountLockedError{RetryAfter: time.Until(*user.LockedUntil)}
	}
	if user.Status == models.UserStatusLocked {
		// Lock expired; lift it lazily before examining credentials.
		if err := a.users.ClearLock(ctx, user.ID); err != nil {
			log.Err(err).Msg("clearing expired lock failed")
			return models.LoginResult{}, fmt.Errorf("clearing expired lock failed: %w", err)
		}
		user.FailedAttempts = 0
	}

	if !utils.VerifyCredential(req.CredentialKey, user.CredentialHash) {
		updated, err := a.users.RecordFailedLogin(ctx, user.ID, a.cfg.MaxLoginAttempts, now.Add(a.cfg.LockoutDuration))
		if err != nil {
			log.Err(err).Msg("recording failed login failed")
			return models.LoginResult{}, fmt.Errorf("recording failed login failed: %w", err)
		}

		a.audit.Record(ctx, models.AuditRecord{
			ActorID:      &user.ID,
			Action:       "user.login_failed",
			ResourceType: "user",
			ResourceID:   user.ID.String(),
			IPAddress:    ipAddress,
		})

		if updated.Locked(now) {
			return models.LoginResult{}, &AccountLockedError{RetryAfter: time.Until(*updated.LockedUntil)}
		}
		return models.LoginResult{}, ErrAuthentication
	}

	if user.FailedAttempts > 0 {
		if err := a.users.ResetFailedAttempts(ctx, user.ID); err != nil {
			log.Err(err).Msg("resetting failed attempts failed")
		}
	}

	if user.MFAEnabled {
		pending, err := utils.GenerateToken(a.cfg.TokenIssuer, user.ID, models.TokenMFAPending, a.cfg.MFATokenDuration, a.cfg.TokenSignKey)
		if err != nil {
			log.Err(err).Msg("mfa pending token generation failed")
			return models.LoginResult{}, fmt.Errorf("mfa pending token generation failed: %w", err)
		}
		return models.LoginResult{
			User:            user,
			RequiresMFA:     true,
			MFAPendingToken: pending,
		}, nil
	}

	tokens, err := a.openSession(ctx, user.ID, deviceInfo, ipAddress)
	if err != nil {
		return models.LoginResult{}, err
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &user.ID,
		Action:       "user.login",
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ipAddress,
		UserAgent:    deviceInfo,
	})

	return models.LoginResult{Tokens: &tokens, User: user}, nil
}

// VerifyMFA completes a login halted at the MFA gate.
//
// The pending token is the only accepted proof that the password step
// passed; access and refresh tokens are rejected here. Code attempts are
// rate-limited per account independently of the login lockout counter.
func (a *authService) VerifyMFA(ctx context.Context, req models.MFAVerifyRequest, deviceInfo, ipAddress string) (models.LoginResult, error) {
	log := logger.FromContext(ctx)

	claims, err := utils.ParseToken(req.MFAPendingToken, a.cfg.TokenSignKey, a.cfg.TokenIssuer)
	if err != nil || claims.Type != models.TokenMFAPending {
		return models.LoginResult{}, ErrTokenIsExpiredOrInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.LoginResult{}, ErrTokenIsExpiredOrInvalid
	}

	if err := a.checkMFACode(ctx, userID, req.Code); err != nil {
		return models.LoginResult{}, err
	}

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		log.Err(err).Msg("user lookup after mfa failed")
		return models.LoginResult{}, fmt.Errorf("user lookup after mfa failed: %w", err)
	}

	tokens, err := a.openSession(ctx, userID, deviceInfo, ipAddress)
	if err != nil {
		return models.LoginResult{}, err
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "user.login_mfa",
		ResourceType: "user",
		ResourceID:   userID.String(),
		IPAddress:    ipAddress,
		UserAgent:    deviceInfo,
	})

	return models.LoginResult{Tokens: &tokens, User: user}, nil
}

// SetupTOTP provisions a fresh authenticator enrollment for the user and
// returns the shared secret plus the otpauth:// URI. Re-running setup
// replaces an unconfirmed enrollment.
func (a *authService) SetupTOTP(ctx context.Context, userID uuid.UUID) (models.MFASetupResult, error) {
	log := logger.FromContext(ctx)

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return models.MFASetupResult{}, fmt.Errorf("user lookup failed: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.cfg.TokenIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		log.Err(err).Msg("totp key generation failed")
		return models.MFASetupResult{}, fmt.Errorf("totp key generation failed: %w", err)
	}

	if _, err := a.mfa.Upsert(ctx, models.MFAMethod{
		UserID: userID,
		Type:   models.MFATypeTOTP,
		Secret: key.Secret(),
	}); err != nil {
		log.Err(err).Msg("storing mfa enrollment failed")
		return models.MFASetupResult{}, fmt.Errorf("storing mfa enrollment failed: %w", err)
	}

	return models.MFASetupResult{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ConfirmTOTP verifies the first code of a fresh enrollment. Success makes
// the enrollment authoritative: the method is marked verified and the
// account's MFA flag switches on, so the next login requires a code.
func (a *authService) ConfirmTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	log := logger.FromContext(ctx)

	if err := a.checkMFACode(ctx, userID, code); err != nil {
		return err
	}

	method, err := a.mfa.FindByUserAndType(ctx, userID, models.MFATypeTOTP)
	if err != nil {
		return fmt.Errorf("mfa enrollment lookup failed: %w", err)
	}
	if !method.Verified {
		if err := a.mfa.MarkVerified(ctx, method.ID); err != nil {
			log.Err(err).Msg("marking enrollment verified failed")
			return fmt.Errorf("marking enrollment verified failed: %w", err)
		}
		if err := a.users.SetMFAEnabled(ctx, userID, true); err != nil {
			log.Err(err).Msg("enabling mfa on account failed")
			return fmt.Errorf("enabling mfa on account failed: %w", err)
		}
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "user.mfa_enabled",
		ResourceType: "user",
		ResourceID:   userID.String(),
	})

	return nil
}

// checkMFACode burns one rate-limited attempt and validates the code
// against the stored TOTP secret.
func (a *authService) checkMFACode(ctx context.Context, userID uuid.UUID, code string) error {
	log := logger.FromContext(ctx)

	allowed, err := a.users.RecordMFAAttempt(ctx, userID, a.cfg.MaxMFAAttempts, a.cfg.MFAAttemptWindow)
	if err != nil {
		log.Err(err).Msg("recording mfa attempt failed")
		return fmt.Errorf("recording mfa attempt failed: %w", err)
	}
	if !allowed {
		return ErrTooManyMFAAttempts
	}

	method, err := a.mfa.FindByUserAndType(ctx, userID, models.MFATypeTOTP)
	if err != nil {
		if errors.Is(err, store.ErrMFAMethodNotFound) {
			return ErrMFACodeInvalid
		}
		return fmt.Errorf("mfa enrollment lookup failed: %w", err)
	}

	ok, err := totp.ValidateCustom(code, method.Secret, time.Now(), totpOpts)
	if err != nil || !ok {
		return ErrMFACodeInvalid
	}

	return nil
}

// Refresh rotates the session whose ledger entry matches the presented
// refresh token. The rotation is a guarded single-row UPDATE, so when the
// same token is presented twice concurrently exactly one caller gets a new
// pair and the other gets ErrAuthentication.
func (a *authService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	claims, err := utils.ParseToken(refreshToken, a.cfg.TokenSignKey, a.cfg.TokenIssuer)
	if err != nil || claims.Type != models.TokenRefresh {
		return models.TokenPair{}, ErrTokenIsExpiredOrInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.TokenPair{}, ErrTokenIsExpiredOrInvalid
	}

	tokens, newFingerprint, err := a.mintPair(userID)
	if err != nil {
		log.Err(err).Msg("token pair generation failed")
		return models.TokenPair{}, fmt.Errorf("token pair generation failed: %w", err)
	}

	if _, err := a.sessions.Rotate(ctx, utils.Fingerprint(refreshToken), newFingerprint, time.Now().Add(a.cfg.RefreshTokenDuration)); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return models.TokenPair{}, ErrAuthentication
		}
		log.Err(err).Msg("session rotation failed")
		return models.TokenPair{}, fmt.Errorf("session rotation failed: %w", err)
	}

	return tokens, nil
}

// Logout invalidates the session of the presented refresh token. A token
// with no live session is treated as already logged out.
func (a *authService) Logout(ctx context.Context, refreshToken string) error {
	log := logger.FromContext(ctx)

	session, err := a.sessions.FindActiveByFingerprint(ctx, utils.Fingerprint(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil
		}
		log.Err(err).Msg("session lookup failed")
		return fmt.Errorf("session lookup failed: %w", err)
	}

	if err := a.sessions.Deactivate(ctx, session.ID); err != nil {
		log.Err(err).Msg("session deactivation failed")
		return fmt.Errorf("session deactivation failed: %w", err)
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &session.UserID,
		Action:       "user.logout",
		ResourceType: "session",
		ResourceID:   session.ID.String(),
	})

	return nil
}

// RevokeSession invalidates one session from the user's device list.
func (a *authService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := a.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session lookup failed: %w", err)
	}
	if session.UserID != userID {
		return ErrAccessDenied
	}

	return a.sessions.Deactivate(ctx, sessionID)
}

// ListSessions returns the user's device history, active and revoked.
func (a *authService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return a.sessions.ListByUser(ctx, userID)
}

// ChangePassword rotates the credential verifier and the wrapped key blobs
// in one storage operation, then revokes every session except the one the
// change came from.
func (a *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req models.ChangePasswordRequest, currentRefreshToken string) error {
	log := logger.FromContext(ctx)

	if req.NewCredentialKey == "" || req.NewWrappedVaultKey == "" || req.NewWrappedPrivateKey == "" {
		return ErrInvalidDataProvided
	}

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if !utils.VerifyCredential(req.CurrentCredentialKey, user.CredentialHash) {
		return ErrAuthentication
	}

	hash, err := utils.HashCredential(req.NewCredentialKey, a.cfg.BcryptCost)
	if err != nil {
		log.Err(err).Msg("credential hashing failed")
		return fmt.Errorf("credential hashing failed: %w", err)
	}

	if err := a.users.UpdateCredentials(ctx, userID, hash, req.NewWrappedVaultKey, req.NewWrappedPrivateKey); err != nil {
		log.Err(err).Msg("credential update failed")
		return fmt.Errorf("credential update failed: %w", err)
	}

	revoked, err := a.sessions.DeactivateOthers(ctx, userID, utils.Fingerprint(currentRefreshToken))
	if err != nil {
		log.Err(err).Msg("revoking other sessions failed")
		return fmt.Errorf("revoking other sessions failed: %w", err)
	}

	a.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "user.password_changed",
		ResourceType: "user",
		ResourceID:   userID.String(),
		Metadata:     map[string]any{"sessions_revoked": revoked},
	})

	return nil
}

// DeleteAccount removes the account and everything hanging off it.
func (a *authService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := a.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("account deletion failed: %w", err)
	}

	a.audit.Record(ctx, models.AuditRecord{
		Action:       "user.deleted",
		ResourceType: "user",
		ResourceID:   userID.String(),
	})

	return nil
}

// Authenticate validates a raw access token and returns the subject. Tokens
// of any other type, including refresh tokens, are rejected.
func (a *authService) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	claims, err := utils.ParseToken(accessToken, a.cfg.TokenSignKey, a.cfg.TokenIssuer)
	if err != nil || claims.Type != models.TokenAccess {
		return uuid.Nil, ErrTokenIsExpiredOrInvalid
	}

	userID, err := claims.UserID()
	if err != nil {
		return uuid.Nil, ErrTokenIsExpiredOrInvalid
	}

	return userID, nil
}

// mintPair signs a fresh access/refresh pair and returns the refresh
// token's fingerprint for the session ledger.
func (a *authService) mintPair(userID uuid.UUID) (models.TokenPair, string, error) {
	access, err := utils.GenerateToken(a.cfg.TokenIssuer, userID, models.TokenAccess, a.cfg.AccessTokenDuration, a.cfg.TokenSignKey)
	if err != nil {
		return models.TokenPair{}, "", err
	}
	refresh, err := utils.GenerateToken(a.cfg.TokenIssuer, userID, models.TokenRefresh, a.cfg.RefreshTokenDuration, a.cfg.TokenSignKey)
	if err != nil {
		return models.TokenPair{}, "", err
	}

	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, utils.Fingerprint(refresh), nil
}

// openSession mints a pair and records the refresh fingerprint as a new
// session row.
func (a *authService) openSession(ctx context.Context, userID uuid.UUID, deviceInfo, ipAddress string) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	tokens, fingerprint, err := a.mintPair(userID)
	if err != nil {
		log.Err(err).Msg("token pair generation failed")
		return models.TokenPair{}, fmt.Errorf("token pair generation failed: %w", err)
	}

	if _, err := a.sessions.Create(ctx, models.Session{
		UserID:           userID,
		TokenFingerprint: fingerprint,
		DeviceInfo:       deviceInfo,
		IPAddress:        ipAddress,
		IsActive:         true,
		ExpiresAt:        time.Now().Add(a.cfg.RefreshTokenDuration),
	}); err != nil {
		log.Err(err).Msg("session creation failed")
		return models.TokenPair{}, fmt.Errorf("session creation failed: %w", err)
	}

	return tokens, nil
}
