package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Guyuepp/newsfeed/domain"
)

// ProviderClaims is the subset of an identity token the server reads
type ProviderClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// HMACProviderVerifier checks identity tokens signed with a per provider shared secret.
// Providers without a configured secret are rejected.
type HMACProviderVerifier struct {
	secrets map[string][]byte
}

var _ domain.ProviderVerifier = (*HMACProviderVerifier)(nil)

func NewHMACProviderVerifier(secrets map[string][]byte) *HMACProviderVerifier {
	s := make(map[string][]byte, len(secrets))
	for provider, secret := range secrets {
		if len(secret) > 0 {
			s[provider] = secret
		}
	}
	return &HMACProviderVerifier{secrets: s}
}

func (v *HMACProviderVerifier) Verify(_ context.Context, provider, idToken string) (domain.ProviderIdentity, error) {
	secret, ok := v.secrets[provider]
	if !ok {
		return domain.ProviderIdentity{}, fmt.Errorf("provider %q is not enabled: %w", provider, domain.ErrBadParamInput)
	}

	token, err := jwt.ParseWithClaims(idToken, &ProviderClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*ProviderClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return domain.ProviderIdentity{}, fmt.Errorf("%w: identity token carries no e-mail", domain.ErrUnauthenticated)
	}

	return domain.ProviderIdentity{
		Provider:    provider,
		Email:       strings.ToLower(strings.TrimSpace(claims.Email)),
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}
