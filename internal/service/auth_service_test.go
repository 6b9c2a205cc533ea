package service

import (
	"context"
	"testing"
	"time"

	"chainpay-gateway/config"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports/mocks"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestArgon2HashService_RoundTrip(t *testing.T) {
	h := NewArgon2HashService()

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Verify("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-pass", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2HashService_SaltedHashesDiffer(t *testing.T) {
	h := NewArgon2HashService()

	h1, err := h.Hash("same")
	require.NoError(t, err)
	h2, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_MalformedHash(t *testing.T) {
	h := NewArgon2HashService()

	_, err := h.Verify("pass", "not-a-hash")
	assert.Error(t, err)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Expiry: time.Hour,
		Issuer: "chainpay-gateway",
	}
}

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())
	merchantID := uuid.New()

	token, expiresAt, err := svc.Generate(merchantID, domain.MerchantRoleAdmin)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, merchantID, claims.MerchantID)
	assert.Equal(t, domain.MerchantRoleAdmin, claims.Role)
}

func TestJWTTokenService_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())
	token, _, err := svc.Generate(uuid.New(), domain.MerchantRoleMerchant)
	require.NoError(t, err)

	other := NewJWTTokenService(config.JWTConfig{
		Secret: "a-completely-different-secret-key!!",
		Expiry: time.Hour,
		Issuer: "chainpay-gateway",
	})
	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsWrongIssuer(t *testing.T) {
	issued := NewJWTTokenService(config.JWTConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Expiry: time.Hour,
		Issuer: "someone-else",
	})
	token, _, err := issued.Generate(uuid.New(), domain.MerchantRoleMerchant)
	require.NoError(t, err)

	svc := NewJWTTokenService(testJWTConfig())
	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsExpired(t *testing.T) {
	svc := NewJWTTokenService(config.JWTConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Expiry: -time.Minute,
		Issuer: "chainpay-gateway",
	})
	token, _, err := svc.Generate(uuid.New(), domain.MerchantRoleMerchant)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	hasher := mocks.NewMockHashService(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(merchantRepo, hasher, tokens, zerolog.Nop())

	merchantID := uuid.New()
	m := activeMerchant(merchantID, domain.MerchantTierStandard)
	m.Username = "acme"
	m.PasswordHash = "stored-hash"

	expiry := time.Now().Add(time.Hour)
	merchantRepo.EXPECT().GetByUsername(gomock.Any(), "acme").Return(m, nil)
	hasher.EXPECT().Verify("pw", "stored-hash").Return(true, nil)
	tokens.EXPECT().Generate(merchantID, domain.MerchantRoleMerchant).Return("jwt-token", expiry, nil)

	token, expiresAt, err := svc.Login(context.Background(), "acme", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiry, expiresAt)
}

func TestLogin_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	ctrl := gomock.NewController(t)
	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	hasher := mocks.NewMockHashService(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(merchantRepo, hasher, tokens, zerolog.Nop())

	merchantRepo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)
	_, _, errUnknown := svc.Login(context.Background(), "ghost", "pw")

	m := activeMerchant(uuid.New(), domain.MerchantTierStandard)
	m.PasswordHash = "stored-hash"
	merchantRepo.EXPECT().GetByUsername(gomock.Any(), "acme").Return(m, nil)
	hasher.EXPECT().Verify("bad", "stored-hash").Return(false, nil)
	_, _, errWrongPw := svc.Login(context.Background(), "acme", "bad")

	var appErr1, appErr2 *apperror.AppError
	require.ErrorAs(t, errUnknown, &appErr1)
	require.ErrorAs(t, errWrongPw, &appErr2)
	assert.Equal(t, appErr1.Code, appErr2.Code)
	assert.Equal(t, "AUTH_001", appErr1.Code)
}

func TestLogin_SuspendedMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	hasher := mocks.NewMockHashService(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(merchantRepo, hasher, tokens, zerolog.Nop())

	m := activeMerchant(uuid.New(), domain.MerchantTierStandard)
	m.Status = domain.MerchantStatusSuspended
	m.PasswordHash = "stored-hash"

	merchantRepo.EXPECT().GetByUsername(gomock.Any(), "acme").Return(m, nil)
	hasher.EXPECT().Verify("pw", "stored-hash").Return(true, nil)

	_, _, err := svc.Login(context.Background(), "acme", "pw")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_004", appErr.Code)
}
