package services

import (
	"context"
	"testing"

	"github.com/cardmint/cardmint/internal/models"
	pkgauth "github.com/cardmint/cardmint/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminEmail = "admin@example.com"

func newAccountService(repo *MockAccountRepository, enqueuer *RecordingEnqueuer) *AccountService {
	return NewAccountService(repo, enqueuer, NewTestLogger(), NewTestAudit(), testAdminEmail)
}

func TestAccountService_CreateOrUpdate_DerivesUserRole(t *testing.T) {
	var upserted *models.Account
	mockRepo := &MockAccountRepository{
		UpsertFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			upserted = account
			return account, nil
		},
	}
	enqueuer := &RecordingEnqueuer{}

	svc := newAccountService(mockRepo, enqueuer)

	account, err := svc.CreateOrUpdate(context.Background(), "User@Example.com")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", account.Email)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.Equal(t, models.RoleUser, upserted.Role)

	// Non-admin sign-ins alert the admin.
	require.Len(t, enqueuer.Sent, 1)
	assert.Equal(t, testAdminEmail, enqueuer.Sent[0].Recipient)
}

func TestAccountService_CreateOrUpdate_AdminGetsSuperadmin(t *testing.T) {
	mockRepo := &MockAccountRepository{
		UpsertFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return account, nil
		},
	}
	enqueuer := &RecordingEnqueuer{}

	svc := newAccountService(mockRepo, enqueuer)

	account, err := svc.CreateOrUpdate(context.Background(), "Admin@Example.COM")
	require.NoError(t, err)

	assert.Equal(t, models.RoleSuperadmin, account.Role)
	assert.Empty(t, enqueuer.Sent, "admin's own sign-in should not alert the admin")
}

func TestAccountService_CreateOrUpdate_EmptyEmail(t *testing.T) {
	svc := newAccountService(&MockAccountRepository{}, &RecordingEnqueuer{})

	_, err := svc.CreateOrUpdate(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAccountService_Exists(t *testing.T) {
	mockRepo := &MockAccountRepository{
		ExistsFunc: func(ctx context.Context, email string) (bool, error) {
			return email == "present@example.com", nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	exists, err := svc.Exists(context.Background(), "Present@Example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(context.Background(), "absent@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = svc.Exists(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountService_SignUp_HashesPassword(t *testing.T) {
	var created *models.Account
	mockRepo := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			created = account
			return account, nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	account, err := svc.SignUp(context.Background(), "Test User", "new@example.com", "SecureP@ss123")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", account.Email)
	assert.NotEqual(t, "SecureP@ss123", created.PasswordHash)
	assert.NoError(t, pkgauth.ComparePassword(created.PasswordHash, "SecureP@ss123"))
}

func TestAccountService_SignUp_Conflict(t *testing.T) {
	mockRepo := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	_, err := svc.SignUp(context.Background(), "Test User", "dup@example.com", "SecureP@ss123")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountService_SignUp_WeakPasswordRejected(t *testing.T) {
	svc := newAccountService(&MockAccountRepository{}, &RecordingEnqueuer{})

	_, err := svc.SignUp(context.Background(), "Test User", "new@example.com", "short")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAccountService_SignIn_Success(t *testing.T) {
	hash, err := pkgauth.HashPassword("SecureP@ss123")
	require.NoError(t, err)

	touched := false
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return &models.Account{Email: email, PasswordHash: hash, Role: models.RoleUser}, nil
		},
		TouchLastLoginFunc: func(ctx context.Context, email string) error {
			touched = true
			return nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	account, err := svc.SignIn(context.Background(), "user@example.com", "SecureP@ss123")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)
	assert.True(t, touched)
}

func TestAccountService_SignIn_WrongPassword(t *testing.T) {
	hash, err := pkgauth.HashPassword("SecureP@ss123")
	require.NoError(t, err)

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return &models.Account{Email: email, PasswordHash: hash}, nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	_, err = svc.SignIn(context.Background(), "user@example.com", "WrongPassword1!")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAccountService_SignIn_UnknownEmail(t *testing.T) {
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	_, err := svc.SignIn(context.Background(), "ghost@example.com", "SecureP@ss123")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountService_SignIn_OTPOnlyAccountRejected(t *testing.T) {
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			// Account created via OTP flow has no password hash.
			return &models.Account{Email: email, PasswordHash: ""}, nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	_, err := svc.SignIn(context.Background(), "otp-only@example.com", "SecureP@ss123")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAccountService_ResetPassword(t *testing.T) {
	var newHash string
	mockRepo := &MockAccountRepository{
		SetPasswordFunc: func(ctx context.Context, email, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	err := svc.ResetPassword(context.Background(), "user@example.com", "NewSecureP@ss1")
	require.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(newHash, "NewSecureP@ss1"))
}

func TestAccountService_ResetPassword_UnknownEmail(t *testing.T) {
	mockRepo := &MockAccountRepository{
		SetPasswordFunc: func(ctx context.Context, email, passwordHash string) error {
			return models.ErrNotFound
		},
	}

	svc := newAccountService(mockRepo, &RecordingEnqueuer{})

	err := svc.ResetPassword(context.Background(), "ghost@example.com", "NewSecureP@ss1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
