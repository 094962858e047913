package auth

import (
	"encoding/json"
	"fmt"
)

// Key types accepted by `auth import` and --credentials
const (
	KeyTypeServiceAccount = "service_account"
	KeyTypeAuthorizedUser = "authorized_user"
)

// credentialKey is the subset of a Google JSON key that gdmirror inspects.
// Both service account keys and gcloud authorized-user files share this shape.
type credentialKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
	PrivateKey   string `json:"private_key,omitempty"`
	ClientEmail  string `json:"client_email,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// parseKey checks that data is a usable Google credentials file
func parseKey(data []byte) (*credentialKey, error) {
	var key credentialKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse credentials key: %w", err)
	}

	switch key.Type {
	case KeyTypeServiceAccount:
		if key.ClientEmail == "" {
			return nil, fmt.Errorf("missing client_email in service account key")
		}
		if key.PrivateKey == "" {
			return nil, fmt.Errorf("missing private_key in service account key")
		}
	case KeyTypeAuthorizedUser:
		if key.ClientID == "" || key.RefreshToken == "" {
			return nil, fmt.Errorf("authorized_user key requires client_id and refresh_token")
		}
	case "":
		return nil, fmt.Errorf("credentials key has no type")
	default:
		return nil, fmt.Errorf("unsupported credentials key type: %s", key.Type)
	}

	return &key, nil
}
