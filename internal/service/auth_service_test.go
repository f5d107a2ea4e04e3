package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authFixture struct {
	svc    *service.AuthService
	issuer *auth.TokenIssuer
	mail   *outbox
	clock  *time.Time
}

func newAuthFixture(t *testing.T, db *gorm.DB) authFixture {
	t.Helper()
	cfg := &config.AuthConfig{
		JWTSecret:       "test-secret-with-enough-entropy",
		JWTIssuer:       "job-sense-test",
		AccessTokenTTL:  60,
		VerificationTTL: 24,
		ResetTTL:        60,
	}
	issuer := auth.NewTokenIssuer(cfg)
	mail := &outbox{}
	now := time.Now().UTC()
	clock := &now

	svc := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewTokenRepository(db),
		issuer,
		mail,
		cfg,
		"https://app.example.com",
		zap.NewNop(),
		service.WithHashParams(fastHash),
		service.WithAuthClock(func() time.Time { return *clock }),
	)
	return authFixture{svc: svc, issuer: issuer, mail: mail, clock: clock}
}

func register(t *testing.T, f authFixture, email, password string) *domain.UserDTO {
	t.Helper()
	user, err := f.svc.Register(context.Background(), &domain.RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func TestAuthService_RegisterVerifyLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newAuthFixture(t, db)
	ctx := context.Background()

	user := register(t, f, "  Crew@Example.com ", "correct horse battery")
	assert.Equal(t, "crew@example.com", user.Email)
	assert.False(t, user.EmailVerified)
	require.Len(t, f.mail.messages, 1)
	assert.Contains(t, f.mail.messages[0].PlainText, "https://app.example.com/verify?token=")

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := f.svc.Register(ctx, &domain.RegisterRequest{Email: "CREW@example.com", Password: "another password"})
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("login before verification", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "crew@example.com", Password: "correct horse battery"})
		assert.ErrorIs(t, err, service.ErrEmailNotVerified)
	})

	token := f.mail.lastToken(t)
	require.NoError(t, f.svc.VerifyEmail(ctx, &domain.VerifyEmailRequest{Token: token}))

	t.Run("token is single use", func(t *testing.T) {
		err := f.svc.VerifyEmail(ctx, &domain.VerifyEmailRequest{Token: token})
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "crew@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("successful login issues a valid token", func(t *testing.T) {
		resp, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "CREW@example.com", Password: "correct horse battery"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, 3600, resp.ExpiresIn)
		assert.True(t, resp.User.EmailVerified)

		userCtx, err := f.issuer.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userCtx.UserID)
	})
}

func TestAuthService_VerifyExpiredToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newAuthFixture(t, db)

	register(t, f, "late@example.com", "password123")
	token := f.mail.lastToken(t)

	*f.clock = f.clock.Add(25 * time.Hour)
	err := f.svc.VerifyEmail(context.Background(), &domain.VerifyEmailRequest{Token: token})
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_PasswordReset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newAuthFixture(t, db)
	ctx := context.Background()

	register(t, f, "reset@example.com", "old password")
	require.NoError(t, f.svc.VerifyEmail(ctx, &domain.VerifyEmailRequest{Token: f.mail.lastToken(t)}))

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		sent := len(f.mail.messages)
		require.NoError(t, f.svc.RequestPasswordReset(ctx, &domain.PasswordResetRequestRequest{Email: "ghost@example.com"}))
		assert.Len(t, f.mail.messages, sent)
	})

	require.NoError(t, f.svc.RequestPasswordReset(ctx, &domain.PasswordResetRequestRequest{Email: "Reset@Example.com"}))
	assert.Contains(t, f.mail.messages[len(f.mail.messages)-1].PlainText, "/reset-password?token=")
	token := f.mail.lastToken(t)

	require.NoError(t, f.svc.ResetPassword(ctx, &domain.PasswordResetRequest{Token: token, Password: "new password"}))

	_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "reset@example.com", Password: "old password"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.svc.Login(ctx, &domain.LoginRequest{Email: "reset@example.com", Password: "new password"})
	assert.NoError(t, err)

	err = f.svc.ResetPassword(ctx, &domain.PasswordResetRequest{Token: token, Password: "third password"})
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_Profile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newAuthFixture(t, db)

	user := register(t, f, "profile@example.com", "password123")
	ctx := userContext(user.ID)

	name := "Dana Paving"
	updated, err := f.svc.UpdateProfile(ctx, &domain.UpdateProfileRequest{CompanyName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Dana Paving", updated.CompanyName)

	got, err := f.svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dana Paving", got.CompanyName)

	_, err = f.svc.GetProfile(context.Background())
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_PurgeStaleTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newAuthFixture(t, db)
	ctx := context.Background()

	register(t, f, "a@example.com", "password123")
	register(t, f, "b@example.com", "password123")

	deleted, err := f.svc.PurgeStaleTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// verification tokens live 24h; purge keeps them another 7 days
	*f.clock = f.clock.Add(9 * 24 * time.Hour)
	deleted, err = f.svc.PurgeStaleTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
