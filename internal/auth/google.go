package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

// Identity is the subset of a verified Google ID token the service needs
type Identity struct {
	GoogleID      string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// IdentityVerifier validates an ID token issued by an external identity
// provider and extracts the caller's identity from it.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// GoogleVerifier validates Google-issued ID tokens against a client ID
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a verifier bound to one OAuth client ID
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify checks the token's signature, audience and expiry against Google's
// published keys and returns the identity claims it carries.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidToken,
			fmt.Sprintf("Google token verification failed: %v", err))
	}

	identity := &Identity{GoogleID: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		identity.Picture = picture
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}

	return identity, nil
}
