package models

// SecretType is the closed enumeration of item kinds a vault can hold.
// The server treats all kinds identically (opaque ciphertext); the type only
// drives client-side rendering and listing filters.
type SecretType string

const (
	SecretTypePassword             SecretType = "password"
	SecretTypeAPIToken             SecretType = "api_token"
	SecretTypeSecureNote           SecretType = "secure_note"
	SecretTypeSSHKey               SecretType = "ssh_key"
	SecretTypeCertificate          SecretType = "certificate"
	SecretTypeEncryptionKey        SecretType = "encryption_key"
	SecretTypeLogin                SecretType = "login"
	SecretTypeCreditCard           SecretType = "credit_card"
	SecretTypeIdentity             SecretType = "identity"
	SecretTypeDocument             SecretType = "document"
	SecretTypeBankAccount          SecretType = "bank_account"
	SecretTypeCryptoWallet         SecretType = "crypto_wallet"
	SecretTypeDatabase             SecretType = "database"
	SecretTypeDriverLicense        SecretType = "driver_license"
	SecretTypeEmailAccount         SecretType = "email_account"
	SecretTypeMedicalRecord        SecretType = "medical_record"
	SecretTypeMembership           SecretType = "membership"
	SecretTypeOutdoorLicense       SecretType = "outdoor_license"
	SecretTypePassport             SecretType = "passport"
	SecretTypeRewards              SecretType = "rewards"
	SecretTypeServer               SecretType = "server"
	SecretTypeSocialSecurityNumber SecretType = "social_security_number"
	SecretTypeSoftwareLicense      SecretType = "software_license"
	SecretTypeWirelessRouter       SecretType = "wireless_router"
)

var secretTypes = map[SecretType]struct{}{
	SecretTypePassword:             {},
	SecretTypeAPIToken:             {},
	SecretTypeSecureNote:           {},
	SecretTypeSSHKey:               {},
	SecretTypeCertificate:          {},
	SecretTypeEncryptionKey:        {},
	SecretTypeLogin:                {},
	SecretTypeCreditCard:           {},
	SecretTypeIdentity:             {},
	SecretTypeDocument:             {},
	SecretTypeBankAccount:          {},
	SecretTypeCryptoWallet:         {},
	SecretTypeDatabase:             {},
	SecretTypeDriverLicense:        {},
	SecretTypeEmailAccount:         {},
	SecretTypeMedicalRecord:        {},
	SecretTypeMembership:           {},
	SecretTypeOutdoorLicense:       {},
	SecretTypePassport:             {},
	SecretTypeRewards:              {},
	SecretTypeServer:               {},
	SecretTypeSocialSecurityNumber: {},
	SecretTypeSoftwareLicense:      {},
	SecretTypeWirelessRouter:       {},
}

// Valid reports whether t is a member of the closed enumeration.
func (t SecretType) Valid() bool {
	_, ok := secretTypes[t]
	return ok
}
