package ctxutil

import "context"

// Identity is the verified caller as extracted from a bearer token (or the
// fixed local-development identity when verification is bypassed).
type Identity struct {
	Subject           string
	Email             string
	PreferredUsername string
	UPN               string
	Name              string
	TenantClaim       string
	Bypass            bool
}

// PrimaryEmail picks preferred_username, then upn, then email.
func (i *Identity) PrimaryEmail() string {
	if i == nil {
		return ""
	}
	for _, v := range []string{i.PreferredUsername, i.UPN, i.Email} {
		if v != "" {
			return v
		}
	}
	return ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}
