package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"

	"github.com/comunidade-central/accessctl/internal/config"
)

var (
	// ErrOIDCProviderURL is returned when no provider url is configured.
	ErrOIDCProviderURL = errors.New("oidc provider url is required")
	// ErrOIDCClientID is returned when no client id is configured.
	ErrOIDCClientID = errors.New("oidc client id is required")
)

// OIDC reads the user id from the subject of a bearer ID token.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC discovers the provider and creates a verifier for the configured client.
func NewOIDC(ctx context.Context, cfg config.OIDCAuth) (*OIDC, error) {
	if cfg.ProviderURL == "" {
		return nil, ErrOIDCProviderURL
	}

	if cfg.ClientID == "" {
		return nil, ErrOIDCClientID
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return NewOIDCFromVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// NewOIDCFromVerifier creates a provider around an existing verifier.
func NewOIDCFromVerifier(v *oidc.IDTokenVerifier) *OIDC {
	return &OIDC{verifier: v}
}

// Name implements Provider.
func (o *OIDC) Name() string {
	return "oidc"
}

// Identify implements Provider.
func (o *OIDC) Identify(c *fiber.Ctx) (string, error) {
	raw := BearerToken(c)
	if raw == "" {
		return "", nil
	}

	token, err := o.verifier.Verify(c.UserContext(), raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if token.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidCredential)
	}

	return token.Subject, nil
}
