package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/identity"
	"carebridge/pkg/requestcontext"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	g := New()

	result, err := g.SignUp(ctx, "jane@example.com", "hunter2hunter2", "Jane Doe")
	require.NoError(t, err)
	assert.False(t, result.RequiresVerification)

	t.Run("sign-up authenticates immediately without verification", func(t *testing.T) {
		user, err := g.CurrentUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, "Jane Doe", user.Name)
	})

	t.Run("duplicate email is rejected with a distinct error", func(t *testing.T) {
		_, err := g.SignUp(ctx, "Jane@Example.com", "otherpassword", "Jane")
		assert.ErrorIs(t, err, identity.ErrDuplicateIdentity)
	})

	t.Run("sign-in with wrong password fails generically", func(t *testing.T) {
		err := g.SignIn(ctx, "jane@example.com", "wrong")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("sign-in with unknown email fails the same way", func(t *testing.T) {
		err := g.SignIn(ctx, "nobody@example.com", "hunter2hunter2")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("sign-in with correct credentials succeeds", func(t *testing.T) {
		require.NoError(t, g.SignIn(ctx, "jane@example.com", "hunter2hunter2"))
	})
}

func TestVerificationCodes(t *testing.T) {
	ctx := context.Background()
	g := New(RequireVerification())

	result, err := g.SignUp(ctx, "jane@example.com", "hunter2hunter2", "Jane Doe")
	require.NoError(t, err)
	require.True(t, result.RequiresVerification)

	t.Run("sign-up does not authenticate until verified", func(t *testing.T) {
		user, err := g.CurrentUser(ctx)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("wrong code is invalid", func(t *testing.T) {
		err := g.VerifyCode(ctx, "jane@example.com", "00000000")
		assert.ErrorIs(t, err, identity.ErrCodeInvalid)
	})

	code := g.LastCode("jane@example.com")
	require.Len(t, code, 8)

	t.Run("expired code is reported distinctly", func(t *testing.T) {
		future := requestcontext.WithTime(ctx, time.Now().Add(10*time.Minute))
		err := g.VerifyCode(future, "jane@example.com", code)
		assert.ErrorIs(t, err, identity.ErrCodeExpired)
	})

	t.Run("resend issues a fresh code", func(t *testing.T) {
		require.NoError(t, g.SendVerificationCode(ctx, "jane@example.com"))
		fresh := g.LastCode("jane@example.com")
		require.Len(t, fresh, 8)

		require.NoError(t, g.VerifyCode(ctx, "jane@example.com", fresh))

		user, err := g.CurrentUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "jane@example.com", user.Email)
	})

	t.Run("a code is single use", func(t *testing.T) {
		code := g.LastCode("jane@example.com")
		assert.Empty(t, code, "consumed code is no longer outstanding")
	})

	t.Run("resend for an unknown email is silently accepted", func(t *testing.T) {
		require.NoError(t, g.SendVerificationCode(ctx, "nobody@example.com"))
		assert.Empty(t, g.LastCode("nobody@example.com"))
	})
}

func TestSetCurrent(t *testing.T) {
	ctx := context.Background()
	g := New()

	g.SetCurrent(&identity.Identity{ID: "ext-1", Email: "pre@example.com"})
	user, err := g.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ext-1", user.ID)

	g.SetCurrent(nil)
	user, err = g.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}
