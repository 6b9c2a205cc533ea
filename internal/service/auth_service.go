package service

import (
	"context"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	merchantRepo ports.MerchantRepository
	hasher       ports.HashService
	tokens       ports.TokenService
	log          zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	merchantRepo ports.MerchantRepository,
	hasher ports.HashService,
	tokens ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		merchantRepo: merchantRepo,
		hasher:       hasher,
		tokens:       tokens,
		log:          log,
	}
}

// Login authenticates a merchant and issues a JWT. Unknown usernames
// and wrong passwords produce the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	merchant, err := s.merchantRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("load merchant: %w", err))
	}
	if merchant == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hasher.Verify(password, merchant.PasswordHash)
	if err != nil || !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if !merchant.IsActive() {
		return "", time.Time{}, apperror.ErrMerchantSuspended()
	}

	token, expiresAt, err := s.tokens.Generate(merchant.ID, merchant.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("issue token: %w", err))
	}

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("role", string(merchant.Role)).
		Msg("merchant logged in")

	return token, expiresAt, nil
}
