package auth

import (
	"context"

	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// Service implements Google-identity login against the user store
type Service struct {
	store    *store.Store
	verifier IdentityVerifier
	tokens   *TokenManager
	logger   *logger.Logger
}

// NewService creates the auth service
func NewService(st *store.Store, verifier IdentityVerifier, tokens *TokenManager, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		verifier: verifier,
		tokens:   tokens,
		logger:   log,
	}
}

// LoginOrRegister exchanges a Google ID token for a session. Resolution order:
// an account already linked to the Google id logs straight in, an account with
// the same email gets the Google id linked, otherwise a new patient account is
// created.
func (s *Service) LoginOrRegister(ctx context.Context, idToken string) (*types.User, string, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Security("google_token_rejected", "", map[string]interface{}{})
		return nil, "", err
	}

	if !identity.EmailVerified {
		s.logger.Security("unverified_email_rejected", "", map[string]interface{}{
			"email": identity.Email,
		})
		return nil, "", types.NewAuthenticationError(types.ErrCodeUnverifiedEmail,
			"Google account email is not verified")
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Audit(user.ID, "login", "session", true, map[string]interface{}{
		"email": user.Email,
	})
	return user, token, nil
}

func (s *Service) resolveUser(ctx context.Context, identity *Identity) (*types.User, error) {
	user, err := s.store.UserByGoogleID(ctx, identity.GoogleID)
	if err == nil {
		return s.store.UpdateUserLogin(ctx, user.ID)
	}
	if !types.IsNotFound(err) {
		return nil, err
	}

	user, err = s.store.UserByEmail(ctx, identity.Email)
	if err == nil {
		// Same email registered before Google sign-in existed for it
		return s.store.LinkGoogleAccount(ctx, user.ID, identity.GoogleID, identity.Picture)
	}
	if !types.IsNotFound(err) {
		return nil, err
	}

	return s.store.CreateUser(ctx, identity.GoogleID, identity.Email, identity.Name, identity.Picture)
}

// UserFromToken validates a session token and loads its current user row.
// A deleted user invalidates the session even before the token expires.
func (s *Service) UserFromToken(ctx context.Context, tokenString string) (*types.User, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.store.UserByID(ctx, claims.UserID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewAuthenticationError(types.ErrCodeUserNotFound, "User no longer exists")
		}
		return nil, err
	}
	return user, nil
}
