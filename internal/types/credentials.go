package types

// CredentialSource names where the credentials for a run came from
type CredentialSource string

const (
	CredentialSourceFile    CredentialSource = "file"
	CredentialSourceStored  CredentialSource = "stored"
	CredentialSourceDefault CredentialSource = "application_default"
)

// StoredCredentials is the payload persisted per profile by `auth import`
type StoredCredentials struct {
	Profile  string `json:"profile"`
	KeyJSON  []byte `json:"keyJson"`
	ClientID string `json:"clientId,omitempty"`
	Email    string `json:"email,omitempty"`
	Imported string `json:"imported"`
}
