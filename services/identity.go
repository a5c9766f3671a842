package services

import (
	"context"
	"time"
)

// Identity is the auth provider's account, paired 1:1 with a User profile.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Tokens is a session issued by the auth provider.
type Tokens struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	Identity     Identity `json:"user"`
}

// IdentityProvider is the hosted auth service. Implementations report
// failures as models error kinds.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password string, attrs map[string]any) (*Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ListIdentities(ctx context.Context, page, perPage int) ([]Identity, error)
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
}
