package models

// LoginResult is the outcome of a credential check. When RequiresMFA is set
// the token pair is absent and the caller must complete verification with
// the MFA-pending token; no session exists yet.
type LoginResult struct {
	Tokens          *TokenPair `json:"tokens,omitempty"`
	User            User       `json:"user"`
	RequiresMFA     bool       `json:"requires_mfa"`
	MFAPendingToken string     `json:"mfa_pending_token,omitempty"`
}

// MFASetupResult returns the enrollment material for an authenticator app.
// The secret is shown exactly once; it becomes active only after the first
// successful verification.
type MFASetupResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// ShareLinkResult returns the capability token of a freshly created link
// grant. Possession of the token is the authorization.
type ShareLinkResult struct {
	Grant      ShareGrant `json:"grant"`
	ShareToken string     `json:"share_token"`
}
