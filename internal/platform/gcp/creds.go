package gcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromCredentials turns inline JSON or a file path into client
// options. Empty input means application default credentials.
func ClientOptionsFromCredentials(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// SigningCredentials identify the service account that signs upload URLs.
type SigningCredentials struct {
	Account    string
	PrivateKey []byte
}

var ErrMissingSigningCredentials = errors.New("missing storage signing credentials")

func (c SigningCredentials) Valid() bool {
	return strings.TrimSpace(c.Account) != "" && len(c.PrivateKey) > 0
}

type serviceAccountFile struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ResolveSigningCredentials prefers an explicit account and PEM key, then
// falls back to the client_email/private_key of a service-account JSON
// (inline or a file path).
func ResolveSigningCredentials(account, privateKey, serviceAccountJSON string) (SigningCredentials, error) {
	account = strings.TrimSpace(account)
	privateKey = strings.TrimSpace(privateKey)
	if account != "" && privateKey != "" {
		// env-injected PEMs frequently carry literal \n sequences
		return SigningCredentials{
			Account:    account,
			PrivateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
		}, nil
	}

	raw := strings.TrimSpace(serviceAccountJSON)
	if raw == "" {
		return SigningCredentials{}, ErrMissingSigningCredentials
	}
	if !strings.HasPrefix(raw, "{") {
		b, err := os.ReadFile(raw)
		if err != nil {
			return SigningCredentials{}, fmt.Errorf("read service account file: %w", err)
		}
		raw = string(b)
	}
	var sa serviceAccountFile
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return SigningCredentials{}, fmt.Errorf("decode service account: %w", err)
	}
	creds := SigningCredentials{Account: sa.ClientEmail, PrivateKey: []byte(sa.PrivateKey)}
	if !creds.Valid() {
		return SigningCredentials{}, ErrMissingSigningCredentials
	}
	return creds, nil
}
