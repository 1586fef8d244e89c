package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"canteen/internal/auth"
	apperrors "canteen/internal/errors"
	"canteen/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockSessionStore is a mock implementation of SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func newAuthService(repo *MockUserRepository, store *MockSessionStore) (AuthService, *auth.SessionManager) {
	sessions := auth.NewSessionManager("test-secret", time.Hour)
	return NewAuthService(repo, sessions, store, zerolog.Nop()), sessions
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful registration",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "username already exists",
			username: "alice",
			email:    "new@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{ID: 7, Username: "alice"}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:     "email already exists",
			username: "bob",
			email:    "alice@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "bob").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{ID: 7}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:     "lost race on insert",
			username: "carol",
			email:    "carol@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "carol").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "carol@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:          "missing password",
			username:      "dave",
			email:         "dave@example.com",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			service, _ := newAuthService(mockRepo, new(MockSessionStore))

			user, err := service.Register(context.Background(), tt.username, tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.username, user.Username)
				assert.Equal(t, tt.email, user.Email)
				assert.False(t, user.IsAdmin)
				assert.NotEqual(t, tt.password, user.PasswordHash)
				assert.True(t, auth.CheckPassword(user.PasswordHash, tt.password))
			}

			mockRepo.AssertExpectations(t)
			mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	tests := []struct {
		name          string
		username      string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			username: "alice",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{ID: 3, Username: "alice", PasswordHash: hash}, nil)
			},
		},
		{
			name:     "wrong password",
			username: "alice",
			password: "nope",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{ID: 3, Username: "alice", PasswordHash: hash}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			service, sessions := newAuthService(mockRepo, new(MockSessionStore))

			session, user, err := service.Login(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, session)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint(3), user.ID)
				claims, err := sessions.Parse(session.Token)
				require.NoError(t, err)
				assert.Equal(t, uint(3), claims.UserID)
				assert.Equal(t, session.ID, claims.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockStore := new(MockSessionStore)
	service, sessions := newAuthService(mockRepo, mockStore)

	session, err := sessions.Issue(3, "alice")
	require.NoError(t, err)

	mockStore.On("Revoke", mock.Anything, session.ID, mock.AnythingOfType("time.Duration")).Return(nil)

	require.NoError(t, service.Logout(context.Background(), session.Token))
	require.NoError(t, service.Logout(context.Background(), "garbage"))
	require.NoError(t, service.Logout(context.Background(), ""))

	mockStore.AssertNumberOfCalls(t, "Revoke", 1)
	mockStore.AssertExpectations(t)
}

func TestAuthService_Authenticate(t *testing.T) {
	claims := &auth.Claims{UserID: 3}
	claims.ID = "session-1"

	t.Run("active session", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockStore := new(MockSessionStore)
		mockStore.On("IsRevoked", mock.Anything, "session-1").Return(false, nil)
		mockRepo.On("FindByID", mock.Anything, uint(3)).Return(&model.User{ID: 3, Username: "alice"}, nil)
		service, _ := newAuthService(mockRepo, mockStore)

		user, err := service.Authenticate(context.Background(), claims)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("revoked session", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockStore := new(MockSessionStore)
		mockStore.On("IsRevoked", mock.Anything, "session-1").Return(true, nil)
		service, _ := newAuthService(mockRepo, mockStore)

		_, err := service.Authenticate(context.Background(), claims)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("deleted user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockStore := new(MockSessionStore)
		mockStore.On("IsRevoked", mock.Anything, "session-1").Return(false, errors.New("redis down"))
		mockRepo.On("FindByID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)
		service, _ := newAuthService(mockRepo, mockStore)

		_, err := service.Authenticate(context.Background(), claims)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Run("creates admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByUsername", mock.Anything, "admin").Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.IsAdmin && u.Email == "admin@example.com" && auth.CheckPassword(u.PasswordHash, "admin123")
		})).Return(nil)
		service, _ := newAuthService(mockRepo, new(MockSessionStore))

		created, err := service.EnsureAdmin(context.Background(), "admin", "admin@example.com", "admin123")
		require.NoError(t, err)
		assert.True(t, created)
		mockRepo.AssertExpectations(t)
	})

	t.Run("resets existing account", func(t *testing.T) {
		existing := &model.User{ID: 9, Username: "admin", Email: "old@example.com", PasswordHash: "stale"}
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByUsername", mock.Anything, "admin").Return(existing, nil)
		mockRepo.On("Update", mock.Anything, existing).Return(nil)
		service, _ := newAuthService(mockRepo, new(MockSessionStore))

		created, err := service.EnsureAdmin(context.Background(), "admin", "admin@example.com", "admin123")
		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, existing.IsAdmin)
		assert.Equal(t, "admin@example.com", existing.Email)
		assert.True(t, auth.CheckPassword(existing.PasswordHash, "admin123"))
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_RegisterDuplicateLeavesExistingUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := NewAuthService(env.store.Users(), auth.NewSessionManager("test-secret", time.Hour), auth.NewRedisSessionStore(nil), zerolog.Nop())

	original, err := service.Register(ctx, "alice", "alice@example.com", "first")
	require.NoError(t, err)

	_, err = service.Register(ctx, "alice", "other@example.com", "second")
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)

	var count int64
	require.NoError(t, env.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := env.store.Users().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, "alice@example.com", stored.Email)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "first"))
}
