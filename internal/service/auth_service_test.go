package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-tracker/internal/config"
	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret",
			AccessTokenTTLHours: 720,
			BcryptCost:          4,
		},
	}
}

func strPtr(s string) *string {
	return &s
}

func TestRegister_TokenResolvesToCreatedIdentity(t *testing.T) {
	users := newMemUserRepo()
	svc := service.NewAuthService(testConfig(), users)

	user, token, exp, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(720*time.Hour), exp, time.Minute)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestRegister_Validation(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"missing name", "", "a@b.co", "secret1"},
		{"missing email", "Alice", "", "secret1"},
		{"missing password", "Alice", "a@b.co", ""},
		{"malformed email", "Alice", "not-an-email", "secret1"},
		{"no tld", "Alice", "a@b", "secret1"},
		{"short password", "Alice", "a@b.co", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			require.Error(t, err)
			de := apperrors.ToDomainError(err)
			require.Equal(t, "VALIDATION_FAILED", de.Code)
			require.Equal(t, http.StatusBadRequest, de.HTTPStatus)
		})
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Other Alice", "alice@example.com", "secret2")
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, "CONFLICT", de.Code)
	require.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	require.Equal(t, "User already exists", de.Message)
}

func TestRegister_NeverExposesPasswordHashInToken(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())

	user, token, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", user.PasswordHash)
	require.NotContains(t, token, user.PasswordHash)
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, _, _, wrongPw := svc.Login(ctx, "alice@example.com", "wrong-password")
	_, _, _, unknown := svc.Login(ctx, "nobody@example.com", "whatever1")

	require.Error(t, wrongPw)
	require.Error(t, unknown)
	wrongDe := apperrors.ToDomainError(wrongPw)
	unknownDe := apperrors.ToDomainError(unknown)
	require.Equal(t, wrongDe.Code, unknownDe.Code)
	require.Equal(t, wrongDe.Message, unknownDe.Message)
	require.Equal(t, wrongDe.HTTPStatus, unknownDe.HTTPStatus)
	require.Equal(t, http.StatusUnauthorized, wrongDe.HTTPStatus)
}

func TestLogin_IssuesFreshToken(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())
	ctx := context.Background()

	registered, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	user, token, _, err := svc.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, registered.ID, claims.UserID)
}

func TestUpdateProfile_EmptyNameRetained(t *testing.T) {
	svc := service.NewAuthService(testConfig(), newMemUserRepo())
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, service.ProfileUpdateInput{Name: strPtr("")})
	require.NoError(t, err)
	require.Equal(t, "Alice", updated.Name)

	updated, err = svc.UpdateProfile(ctx, user.ID, service.ProfileUpdateInput{Name: strPtr("New Name")})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.Name)
}

func TestUpdateProfile_EmailChecks(t *testing.T) {
	users := newMemUserRepo()
	svc := service.NewAuthService(testConfig(), users)
	ctx := context.Background()

	alice, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	_, _, _, err = svc.Register(ctx, "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, alice.ID, service.ProfileUpdateInput{Email: strPtr("bob@example.com")})
	de := apperrors.ToDomainError(err)
	require.Equal(t, "CONFLICT", de.Code)
	require.Equal(t, "Email is already in use", de.Message)

	_, err = svc.UpdateProfile(ctx, alice.ID, service.ProfileUpdateInput{Email: strPtr("broken@@")})
	de = apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", de.Code)

	// re-submitting the current email is a no-op, not a conflict
	updated, err := svc.UpdateProfile(ctx, alice.ID, service.ProfileUpdateInput{Email: strPtr("alice@example.com")})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", updated.Email)

	updated, err = svc.UpdateProfile(ctx, alice.ID, service.ProfileUpdateInput{Email: strPtr("alice2@example.com")})
	require.NoError(t, err)
	require.Equal(t, "alice2@example.com", updated.Email)
}

func TestUpdateProfile_MissingUser(t *testing.T) {
	users := newMemUserRepo()
	svc := service.NewAuthService(testConfig(), users)
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	users.delete(user.ID)

	_, err = svc.UpdateProfile(ctx, user.ID, service.ProfileUpdateInput{Name: strPtr("Ghost")})
	de := apperrors.ToDomainError(err)
	require.Equal(t, "NOT_FOUND", de.Code)
	require.Equal(t, http.StatusNotFound, de.HTTPStatus)
}
