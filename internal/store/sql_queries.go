package store

const (
	userColumns = `id, email, name, credential_hash, wrapped_vault_key, wrapped_private_key, public_key,
		kdf_iterations, kdf_memory, mfa_enabled, status, failed_attempts, locked_until,
		mfa_attempts, mfa_attempts_reset_at, created_at, updated_at`

	createUser = `INSERT INTO users (id, email, name, credential_hash, wrapped_vault_key, wrapped_private_key, public_key, kdf_iterations, kdf_memory, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns + `;`

	findUserByEmail = `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1;`

	findUserByID = `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1;`

	// recordFailedLogin is the whole lockout policy in one statement: the
	// increment and the conditional transition to locked happen under the
	// same row lock, so concurrent failures cannot lose updates.
	recordFailedLogin = `UPDATE users
		SET failed_attempts = failed_attempts + 1,
		    status = CASE WHEN failed_attempts + 1 >= $2 THEN 'locked' ELSE status END,
		    locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns + `;`

	clearUserLock = `UPDATE users
		SET status = 'active', failed_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1;`

	resetFailedAttempts = `UPDATE users
		SET failed_attempts = 0, updated_at = NOW()
		WHERE id = $1;`

	// recordMFAAttempt restarts the counter when the window at $2 has
	// elapsed, otherwise increments it; $3 is the end of a fresh window.
	recordMFAAttempt = `UPDATE users
		SET mfa_attempts = CASE WHEN mfa_attempts_reset_at IS NULL OR mfa_attempts_reset_at <= $2 THEN 1 ELSE mfa_attempts + 1 END,
		    mfa_attempts_reset_at = CASE WHEN mfa_attempts_reset_at IS NULL OR mfa_attempts_reset_at <= $2 THEN $3 ELSE mfa_attempts_reset_at END
		WHERE id = $1
		RETURNING mfa_attempts;`

	setUserMFAEnabled = `UPDATE users
		SET mfa_enabled = $2, updated_at = NOW()
		WHERE id = $1;`

	updateUserCredentials = `UPDATE users
		SET credential_hash = $2, wrapped_vault_key = $3, wrapped_private_key = $4, updated_at = NOW()
		WHERE id = $1;`

	deleteUser = `DELETE FROM users
		WHERE id = $1;`
)

const (
	sessionColumns = `id, user_id, token_fingerprint, device_info, ip_address, is_active, created_at, expires_at`

	createSession = `INSERT INTO sessions (id, user_id, token_fingerprint, device_info, ip_address, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		RETURNING ` + sessionColumns + `;`

	findSessionByID = `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1;`

	findActiveSessionByFingerprint = `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token_fingerprint = $1 AND is_active = TRUE AND expires_at > NOW();`

	// rotateSession matches on the OLD fingerprint while it is still
	// active. Two concurrent refreshes of one token race on this row: the
	// first one rewrites the fingerprint, the second matches nothing. A row
	// past its expires_at is not rotated; the same statement retires it, and
	// the returned is_active=FALSE tells the caller the token died of age.
	rotateSession = `UPDATE sessions
		SET token_fingerprint = CASE WHEN expires_at > NOW() THEN $2 ELSE token_fingerprint END,
		    expires_at = CASE WHEN expires_at > NOW() THEN $3 ELSE expires_at END,
		    is_active = expires_at > NOW()
		WHERE token_fingerprint = $1 AND is_active = TRUE
		RETURNING ` + sessionColumns + `;`

	deactivateSession = `UPDATE sessions
		SET is_active = FALSE
		WHERE id = $1;`

	deactivateAllUserSessions = `UPDATE sessions
		SET is_active = FALSE
		WHERE user_id = $1 AND is_active = TRUE;`

	deactivateOtherUserSessions = `UPDATE sessions
		SET is_active = FALSE
		WHERE user_id = $1 AND is_active = TRUE AND token_fingerprint <> $2;`

	// listSessionsByUser reports effective activity: a row whose expiry has
	// passed shows as inactive even before anything retires it in place.
	listSessionsByUser = `SELECT id, user_id, token_fingerprint, device_info, ip_address,
			is_active AND expires_at > NOW() AS is_active, created_at, expires_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC;`
)

const (
	mfaColumns = `id, user_id, type, secret, verified, created_at`

	upsertMFAMethod = `INSERT INTO mfa_methods (id, user_id, type, secret, verified)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (user_id, type)
		DO UPDATE SET secret = EXCLUDED.secret, verified = FALSE
		RETURNING ` + mfaColumns + `;`

	findMFAMethodByUserAndType = `SELECT ` + mfaColumns + `
		FROM mfa_methods
		WHERE user_id = $1 AND type = $2;`

	markMFAMethodVerified = `UPDATE mfa_methods
		SET verified = TRUE
		WHERE id = $1;`
)

const (
	vaultColumns = `id, owner_id, org_id, type, name_ciphertext, description_ciphertext, icon, created_at, updated_at`

	createVault = `INSERT INTO vaults (id, owner_id, org_id, type, name_ciphertext, description_ciphertext, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + vaultColumns + `;`

	findVaultByID = `SELECT ` + vaultColumns + `
		FROM vaults
		WHERE id = $1;`

	listVaultsByOwner = `SELECT ` + vaultColumns + `
		FROM vaults
		WHERE owner_id = $1
		ORDER BY created_at;`

	deleteVault = `DELETE FROM vaults
		WHERE id = $1;`
)

const (
	folderColumns = `id, vault_id, name_ciphertext, parent_id, created_at`

	createFolder = `INSERT INTO folders (id, vault_id, name_ciphertext, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + folderColumns + `;`

	findFolderByID = `SELECT ` + folderColumns + `
		FROM folders
		WHERE id = $1;`

	listFoldersByVault = `SELECT ` + folderColumns + `
		FROM folders
		WHERE vault_id = $1
		ORDER BY created_at;`

	setFolderParent = `UPDATE folders
		SET parent_id = $2
		WHERE id = $1;`
)

const (
	secretColumns = `id, vault_id, folder_id, type, name_ciphertext, data_ciphertext, item_key_wrapped,
		metadata_ciphertext, favorite, is_archived, is_deleted, deleted_at,
		access_count, last_accessed_at, created_at, updated_at`

	createSecret = `INSERT INTO secrets (id, vault_id, folder_id, type, name_ciphertext, data_ciphertext, item_key_wrapped, metadata_ciphertext, favorite)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + secretColumns + `;`

	findSecretByID = `SELECT ` + secretColumns + `
		FROM secrets
		WHERE id = $1;`

	// appendSecretVersion numbers the snapshot with COALESCE(MAX)+1 over the
	// secret's own history, in the same statement as the insert. The MAX
	// aggregate over zero rows yields NULL, so the first snapshot gets 1.
	appendSecretVersion = `INSERT INTO secret_versions (id, secret_id, data_ciphertext, item_key_wrapped, version_number, created_by)
		SELECT $1, $2, $3, $4, COALESCE(MAX(version_number), 0) + 1, $5
		FROM secret_versions
		WHERE secret_id = $2
		RETURNING version_number;`

	touchSecretAccess = `UPDATE secrets
		SET access_count = access_count + 1, last_accessed_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE;`

	setSecretArchived = `UPDATE secrets
		SET is_archived = $2, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE;`

	softDeleteSecret = `UPDATE secrets
		SET is_deleted = TRUE, deleted_at = $2, is_archived = FALSE, favorite = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE;`

	restoreSecret = `UPDATE secrets
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = TRUE;`

	deleteSecret = `DELETE FROM secrets
		WHERE id = $1;`

	moveSecret = `UPDATE secrets
		SET vault_id = $2, item_key_wrapped = $3, folder_id = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE;`

	listSecretVersions = `SELECT id, secret_id, data_ciphertext, item_key_wrapped, version_number, created_by, created_at
		FROM secret_versions
		WHERE secret_id = $1
		ORDER BY version_number DESC;`

	purgeDeletedSecrets = `DELETE FROM secrets
		WHERE is_deleted = TRUE AND deleted_at < $1;`
)

const (
	shareColumns = `id, secret_id, shared_by, recipient_kind, recipient_id, item_key_wrapped,
		permission, share_token, max_views, view_count, expires_at, created_at`

	createShareGrant = `INSERT INTO share_grants (id, secret_id, shared_by, recipient_kind, recipient_id, item_key_wrapped, permission, share_token, max_views, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + shareColumns + `;`

	findShareGrantByID = `SELECT ` + shareColumns + `
		FROM share_grants
		WHERE id = $1;`

	findShareGrantByToken = `SELECT g.id, g.secret_id, g.shared_by, g.recipient_kind, g.recipient_id, g.item_key_wrapped,
			g.permission, g.share_token, g.max_views, g.view_count, g.expires_at, g.created_at,
			s.id, s.vault_id, s.folder_id, s.type, s.name_ciphertext, s.data_ciphertext, s.item_key_wrapped,
			s.metadata_ciphertext, s.favorite, s.is_archived, s.is_deleted, s.deleted_at,
			s.access_count, s.last_accessed_at, s.created_at, s.updated_at
		FROM share_grants g
		JOIN secrets s ON s.id = g.secret_id
		WHERE g.share_token = $1;`

	// consumeShareView carries the view cap and the expiry in the WHERE
	// clause, so the increment past either limit simply matches no row.
	consumeShareView = `UPDATE share_grants
		SET view_count = view_count + 1
		WHERE id = $1
		  AND (max_views IS NULL OR view_count < max_views)
		  AND (expires_at IS NULL OR expires_at > $2);`

	deleteShareGrant = `DELETE FROM share_grants
		WHERE id = $1;`

	listSharesForUser = `SELECT g.id, g.secret_id, g.shared_by, g.recipient_kind, g.recipient_id, g.item_key_wrapped,
			g.permission, g.share_token, g.max_views, g.view_count, g.expires_at, g.created_at,
			s.id, s.vault_id, s.folder_id, s.type, s.name_ciphertext, s.data_ciphertext, s.item_key_wrapped,
			s.metadata_ciphertext, s.favorite, s.is_archived, s.is_deleted, s.deleted_at,
			s.access_count, s.last_accessed_at, s.created_at, s.updated_at
		FROM share_grants g
		JOIN secrets s ON s.id = g.secret_id
		WHERE g.recipient_kind = 'user' AND g.recipient_id = $1
		  AND (g.expires_at IS NULL OR g.expires_at > $2)
		  AND s.is_deleted = FALSE
		ORDER BY g.created_at DESC;`

	listShareHistoryBySecret = `SELECT ` + shareColumns + `
		FROM share_grants
		WHERE secret_id = $1
		ORDER BY created_at DESC;`
)

const (
	appendAuditRecord = `INSERT INTO audit_log (id, actor_id, org_id, action, resource_type, resource_id, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
)
