package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userFixture struct {
	users   *fakeUserRepo
	refdata *fakeRefDataRepo
	tokens  *fakeRefreshTokenRepo
	audit   *fakeAuditRepo
	svc     UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		tokens: newFakeRefreshTokenRepo(),
		audit:  &fakeAuditRepo{},
	}
	f.users = &fakeUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	f.refdata = &fakeRefDataRepo{
		findRoleByNameFn: func(ctx context.Context, name string) (*model.Role, error) {
			return &model.Role{ID: uuid.New(), Name: name}, nil
		},
	}
	f.svc = NewUserService(f.users, f.refdata, f.tokens, f.audit, fakeTxManager{})
	return f
}

func hashedUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	stored := string(hash)
	return &model.User{
		ID:       uuid.New(),
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: &stored,
		Roles:    []model.Role{{Name: model.RoleUser}},
	}
}

func TestRegister_AssignsDefaultRole(t *testing.T) {
	f := newUserFixture(t)

	var created *model.User
	f.users.createFn = func(ctx context.Context, user *model.User) error {
		user.ID = uuid.New()
		created = user
		return nil
	}

	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "hunter22",
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	require.Len(t, created.Roles, 1)
	assert.Equal(t, model.RoleUser, created.Roles[0].Name)
	// Stored password is a hash, never the plaintext
	require.NotNil(t, created.Password)
	assert.NotEqual(t, "hunter22", *created.Password)
	assert.Equal(t, "dana@example.com", resp.Email)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	f := newUserFixture(t)
	existing := hashedUser(t, "hunter22")
	f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
		return existing, nil
	}

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name:     "Dana",
		Email:    existing.Email,
		Password: "hunter22",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeConflict, apperror.From(err).Code)
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	f := newUserFixture(t)
	user := hashedUser(t, "hunter22")
	f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
		return user, nil
	}

	tokens, err := f.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "hunter22"})

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Contains(t, f.tokens.created, tokens.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newUserFixture(t)
	user := hashedUser(t, "hunter22")
	f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
		return user, nil
	}

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong"})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.From(err).Code)
}

func TestLogin_PasswordlessAccount(t *testing.T) {
	f := newUserFixture(t)
	user := hashedUser(t, "hunter22")
	user.Password = nil
	f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
		return user, nil
	}

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "hunter22"})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.From(err).Code)
}

func TestRefreshToken_RotatesOldTokens(t *testing.T) {
	f := newUserFixture(t)
	user := hashedUser(t, "hunter22")
	f.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.User, error) {
		return user, nil
	}

	old := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.tokens.Create(context.Background(), old))

	tokens, err := f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: old.Token})

	require.NoError(t, err)
	assert.NotEqual(t, old.Token, tokens.RefreshToken)
	assert.NotContains(t, f.tokens.created, old.Token)
}

func TestRefreshToken_ExpiredRejected(t *testing.T) {
	f := newUserFixture(t)

	expired := &model.RefreshToken{
		UserID:    uuid.New(),
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.tokens.Create(context.Background(), expired))

	_, err := f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: expired.Token})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.From(err).Code)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	f := newUserFixture(t)
	principal := model.Principal{UserID: uuid.New(), Tier: model.TierManager}

	_, err := f.svc.CreateUser(context.Background(), principal, CreateUserRequest{
		Name:     "New Hire",
		Email:    "hire@example.com",
		Password: "hunter22",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.From(err).Code)
}

func TestCreateUser_UnknownRoleRejected(t *testing.T) {
	f := newUserFixture(t)
	principal := model.Principal{UserID: uuid.New(), Tier: model.TierAdmin}

	f.refdata.findRolesByNamesFn = func(ctx context.Context, names []string) ([]model.Role, error) {
		return nil, nil // nothing matched
	}

	_, err := f.svc.CreateUser(context.Background(), principal, CreateUserRequest{
		Name:     "New Hire",
		Email:    "hire@example.com",
		Password: "hunter22",
		Roles:    []string{"superuser"},
	})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidInput, apperror.From(err).Code)
}

func TestListUsers_PlainUserForbidden(t *testing.T) {
	f := newUserFixture(t)

	_, _, err := f.svc.ListUsers(context.Background(), model.Principal{UserID: uuid.New(), Tier: model.TierUser}, 1, 20)

	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.From(err).Code)
}
