package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/klil-music/conservatory-api/internal/models"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
)

type mockAuthRepo struct {
	users  map[string]models.User
	tokens map[string]models.RefreshToken
}

func newMockAuthRepo(users ...models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: make(map[string]models.User), tokens: make(map[string]models.RefreshToken)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	u := m.users[id]
	u.LastLogin = &ts
	m.users[id] = u
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u := m.users[id]
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	for id, t := range m.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
			m.tokens[id] = t
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.ID] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	for _, t := range m.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	t := m.tokens[id]
	t.Revoked = true
	t.RevokedAt = &revokedAt
	m.tokens[id] = t
	return nil
}

func (m *mockAuthRepo) activeTokens(userID string) int {
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "conservatory-api",
	}
}

func testUser(t *testing.T, id, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         models.RoleStaff,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, 1, repo.activeTokens("u1"))
	require.NotNil(t, repo.users["u1"].LastLogin)
}

func TestAuthServiceLoginRejectsWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "wrong",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginRejectsInactiveAccount(t *testing.T) {
	user := testUser(t, "u1", "staff@conservatory.test", "secret123")
	user.Active = false
	svc := NewAuthService(newMockAuthRepo(user), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceLoginSingleSessionRevokesOlderTokens(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	cfg := testAuthConfig()
	cfg.SingleSession = true
	svc := NewAuthService(repo, nil, nil, cfg)

	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), models.LoginRequest{
			Email:    "staff@conservatory.test",
			Password: "secret123",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.activeTokens("u1"))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the exchanged token is single-use
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRefreshRejectsExpiredToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	repo.tokens["rt1"] = models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1"))
	assert.Equal(t, 0, repo.activeTokens("u1"))
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret456",
	})
	require.NoError(t, err)

	// all sessions drop after a password change
	assert.Equal(t, 0, repo.activeTokens("u1"))
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)

	// new password now authenticates
	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "newsecret456",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "another789",
	})
	require.Error(t, err)
}

func TestAuthServiceValidateToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "u1", "staff@conservatory.test", "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)

	// a token signed with a different secret is rejected
	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: time.Minute,
	})
	foreign, err := other.Login(context.Background(), models.LoginRequest{
		Email:    "staff@conservatory.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign.AccessToken)
	require.Error(t, err)
}
