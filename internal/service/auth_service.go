package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/email"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"go.uber.org/zap"
)

// staleTokenAge is how long expired or used tokens are kept before purging
const staleTokenAge = 7 * 24 * time.Hour

// AuthService handles registration, email verification, login and password reset
type AuthService struct {
	userRepo   *repository.UserRepository
	tokenRepo  *repository.TokenRepository
	issuer     *auth.TokenIssuer
	sender     email.Sender
	cfg        *config.AuthConfig
	baseURL    string
	hashParams *auth.HashParams
	logger     *zap.Logger
	now        func() time.Time
}

// AuthOption customizes an AuthService
type AuthOption func(*AuthService)

// WithAuthClock replaces time.Now for token expiry checks
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithHashParams overrides the argon2id cost parameters
func WithHashParams(p *auth.HashParams) AuthOption {
	return func(s *AuthService) { s.hashParams = p }
}

// NewAuthService creates a new auth service instance
func NewAuthService(
	userRepo *repository.UserRepository,
	tokenRepo *repository.TokenRepository,
	issuer *auth.TokenIssuer,
	sender email.Sender,
	cfg *config.AuthConfig,
	baseURL string,
	logger *zap.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		issuer:     issuer,
		sender:     sender,
		cfg:        cfg,
		baseURL:    baseURL,
		hashParams: auth.DefaultHashParams,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and emails a verification link.
// A failed email delivery is logged; the account is still created.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserDTO, error) {
	exists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		s.logger.Error("Failed to check email", zap.Error(err))
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already in use", ErrConflict)
	}

	hash, err := auth.HashPassword(req.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		CompanyName:  req.CompanyName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	ttl := s.cfg.VerificationTTLDuration()
	token := &domain.VerificationToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokenRepo.CreateVerification(ctx, token); err != nil {
		s.logger.Error("Failed to store verification token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.sender.Send(ctx, email.VerificationEmail(user.Email, s.baseURL, raw, ttl)); err != nil {
		s.logger.Error("Failed to send verification email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// VerifyEmail redeems a verification token
func (s *AuthService) VerifyEmail(ctx context.Context, req *domain.VerifyEmailRequest) error {
	token, err := s.tokenRepo.GetVerificationByHash(ctx, auth.HashOpaqueToken(req.Token))
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("Unknown verification token")
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load verification token: %w", err)
	}

	now := s.now()
	if !domain.Usable(token.ExpiresAt, token.UsedAt, now) {
		s.logger.Warn("Verification token expired or used", zap.String("user_id", token.UserID.String()))
		return ErrInvalidToken
	}

	if err := s.tokenRepo.ConsumeVerification(ctx, token, now); err != nil {
		if isNotFound(err) {
			return ErrInvalidToken
		}
		s.logger.Error("Failed to consume verification token", zap.Error(err))
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.logger.Info("Email verified", zap.String("user_id", token.UserID.String()))
	return nil
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("Login failed: unknown email")
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("Stored password hash is unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if !ok {
		s.logger.Warn("Login failed: wrong password", zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	if !user.IsVerified() {
		return nil, ErrEmailNotVerified
	}

	accessToken, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to issue access token", zap.Error(err))
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.issuer.TTL().Seconds()),
		User:        mapper.ToUserDTO(user),
	}, nil
}

// RequestPasswordReset emails a reset link when the address belongs to a user.
// Unknown addresses succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *domain.PasswordResetRequestRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	ttl := s.cfg.ResetTTLDuration()
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokenRepo.CreatePasswordReset(ctx, token); err != nil {
		s.logger.Error("Failed to store reset token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.sender.Send(ctx, email.PasswordResetEmail(user.Email, s.baseURL, raw, ttl)); err != nil {
		s.logger.Error("Failed to send password reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ResetPassword redeems a reset token and stores the new password hash
func (s *AuthService) ResetPassword(ctx context.Context, req *domain.PasswordResetRequest) error {
	token, err := s.tokenRepo.GetPasswordResetByHash(ctx, auth.HashOpaqueToken(req.Token))
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("Unknown password reset token")
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	now := s.now()
	if !domain.Usable(token.ExpiresAt, token.UsedAt, now) {
		s.logger.Warn("Password reset token expired or used", zap.String("user_id", token.UserID.String()))
		return ErrInvalidToken
	}

	hash, err := auth.HashPassword(req.Password, s.hashParams)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.tokenRepo.ConsumePasswordReset(ctx, token, hash, now); err != nil {
		if isNotFound(err) {
			return ErrInvalidToken
		}
		s.logger.Error("Failed to reset password", zap.Error(err))
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("Password reset", zap.String("user_id", token.UserID.String()))
	return nil
}

// GetProfile returns the authenticated user's profile
func (s *AuthService) GetProfile(ctx context.Context) (*domain.UserDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// UpdateProfile changes the name fields that were supplied
func (s *AuthService) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.UserDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, updates); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to update profile", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetProfile(ctx)
}

// PurgeStaleTokens deletes verification and reset tokens that expired or
// were used more than a week ago
func (s *AuthService) PurgeStaleTokens(ctx context.Context) (int64, error) {
	deleted, err := s.tokenRepo.DeleteStale(ctx, s.now().Add(-staleTokenAge))
	if err != nil {
		s.logger.Error("Failed to purge stale tokens", zap.Error(err))
		return 0, fmt.Errorf("failed to purge stale tokens: %w", err)
	}
	return deleted, nil
}
