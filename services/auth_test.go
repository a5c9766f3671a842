package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-rewards-system/models"
)

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.signup.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "hunter22", Name: "Ada"})
	require.NoError(t, err)

	tokens, profile, err := f.auth.SignIn(ctx, " ADA@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	require.NotNil(t, profile)
	assert.Equal(t, u.ID, profile.ID)

	_, _, err = f.auth.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = f.auth.SignIn(ctx, "", "hunter22")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestSignInWithoutProfile(t *testing.T) {
	f := newFixture(t)
	f.identities.add(&Identity{ID: "bare", Email: "bare@example.com"}, "hunter22")

	tokens, profile, err := f.auth.SignIn(context.Background(), "bare@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bare", tokens.Identity.ID)
	assert.Nil(t, profile)
}

func TestSignOutNotifiesStreams(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.hub.Subscribe("ada", 1)
	defer cancel()

	require.NoError(t, f.auth.SignOut(context.Background(), "ada", "access-ada"))
	assert.Equal(t, []string{"access-ada"}, f.identities.signedOut)
	require.Len(t, events, 1)
	assert.Equal(t, EventSignedOut, (<-events).Kind)
}
