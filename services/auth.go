package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"watch-rewards-system/models"
)

// AuthService signs existing users in and out through the identity provider.
type AuthService struct {
	identities IdentityProvider
	profiles   *ProfileService
	hub        *EventHub
}

func NewAuthService(identities IdentityProvider, profiles *ProfileService, hub *EventHub) *AuthService {
	return &AuthService{identities: identities, profiles: profiles, hub: hub}
}

// SignIn exchanges credentials for tokens and loads the caller's profile. A
// missing profile does not fail the sign-in; the profile is then nil.
func (a *AuthService) SignIn(ctx context.Context, email, password string) (*Tokens, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}

	tokens, err := a.identities.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	profile, err := a.profiles.GetProfile(ctx, tokens.Identity.ID)
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		log.Printf("⚠️ [AUTH] identity %s signed in without a profile", tokens.Identity.ID)
		return tokens, nil, nil
	case err != nil:
		return nil, nil, err
	}
	return tokens, profile, nil
}

// SignOut revokes the session and tells the user's open streams.
func (a *AuthService) SignOut(ctx context.Context, userID, accessToken string) error {
	if err := a.identities.SignOut(ctx, accessToken); err != nil {
		return err
	}
	a.hub.Publish(Event{Kind: EventSignedOut, UserID: userID})
	return nil
}
