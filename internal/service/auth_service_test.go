package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]*models.User
	usersByID     map[string]*models.User
	refreshTokens map[string]*models.RefreshToken

	createErr    error
	createdUsers []*models.User
	revokedIDs   []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:         make(map[string]*models.User),
		usersByID:     make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := m.users[username]
	return ok, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user-created"
	m.createdUsers = append(m.createdUsers, user)
	m.users[user.Username] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(_ context.Context, _ string) error {
	return nil
}

type mockProvisioner struct {
	calls int
	err   error
}

func (m *mockProvisioner) ProvisionDefault(_ context.Context, ownerID, username string) (*models.Classroom, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &models.Classroom{ID: "class-default", OwnerID: ownerID, Name: username + "'s Classroom"}, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		Issuer:             "classroom-planner",
	}
}

func TestAuthServiceRegisterTeacherProvisionsClassroom(t *testing.T) {
	repo := newMockUserRepo()
	provisioner := &mockProvisioner{}
	svc := NewAuthService(repo, provisioner, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "msfrizzle",
		Email:    "frizzle@example.org",
		Password: "seatbelts",
		Role:     "teacher",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provisioner.calls)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestAuthServiceRegisterStudentSkipsProvisioning(t *testing.T) {
	repo := newMockUserRepo()
	provisioner := &mockProvisioner{}
	svc := NewAuthService(repo, provisioner, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "arnold",
		Email:    "arnold@example.org",
		Password: "stayedhome",
		Role:     "student",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, provisioner.calls)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
}

func TestAuthServiceRegisterSurvivesProvisionFailure(t *testing.T) {
	repo := newMockUserRepo()
	provisioner := &mockProvisioner{err: errors.New("db down")}
	svc := NewAuthService(repo, provisioner, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "msfrizzle",
		Email:    "frizzle@example.org",
		Password: "seatbelts",
		Role:     "teacher",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthServiceRegisterDuplicateUsername(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["msfrizzle"] = &models.User{ID: "u-1", Username: "msfrizzle"}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "msfrizzle",
		Email:    "frizzle@example.org",
		Password: "seatbelts",
		Role:     "teacher",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterUniqueViolationRace(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = &pq.Error{Code: "23505", Constraint: "users_username_key"}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "msfrizzle",
		Email:    "frizzle@example.org",
		Password: "seatbelts",
		Role:     "student",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newMockUserRepo()
	repo.users["msfrizzle"] = &models.User{ID: "u-1", Username: "msfrizzle", PasswordHash: string(hash), Active: true}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "msfrizzle", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newMockUserRepo()
	repo.users["msfrizzle"] = &models.User{ID: "u-1", Username: "msfrizzle", PasswordHash: string(hash), Active: false}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "msfrizzle", Password: "correct"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginIssuesValidAccessToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newMockUserRepo()
	repo.users["msfrizzle"] = &models.User{ID: "u-1", Username: "msfrizzle", Role: models.RoleTeacher, PasswordHash: string(hash), Active: true}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "msfrizzle", Password: "correct"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.usersByID["u-1"] = &models.User{ID: "u-1", Username: "msfrizzle", Active: true}
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID: "rt-1", UserID: "u-1", Token: "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revokedIDs, "rt-1")
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID: "rt-1", UserID: "u-1", Token: "old-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRevokesOwnToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.refreshTokens["tok"] = &models.RefreshToken{ID: "rt-1", UserID: "u-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.Logout(context.Background(), "tok", "u-1"))
	assert.Equal(t, []string{"rt-1"}, repo.revokedIDs)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.refreshTokens["tok"] = &models.RefreshToken{ID: "rt-1", UserID: "u-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "tok", "u-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.revokedIDs)
}
