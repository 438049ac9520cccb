package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Handle == u.Handle {
			return domain.ErrUserExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByHandle(ctx context.Context, handle string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Handle == handle {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func TestUserService_RegisterBroadcastsProfile(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := newRecordingNotifier()
	svc := NewUserService(slog.Default(), repo, notifier)

	user, err := svc.Register(context.Background(), "Alice", "Alice", "hunter22", "https://cdn/avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Handle, "handles are normalized")
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	require.Len(t, notifier.broadcasts, 1)
	created, ok := notifier.broadcasts[0].(domain.UserCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.TypeUserCreated, created.Type)
	assert.Equal(t, "alice", created.User.Handle)
	assert.Equal(t, "Alice", created.User.DisplayName)
}

func TestUserService_RegisterDuplicateHandle(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := newRecordingNotifier()
	svc := NewUserService(slog.Default(), repo, notifier)

	_, err := svc.Register(context.Background(), "Alice", "alice", "hunter22", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other Alice", "alice", "hunter23", "")
	require.ErrorIs(t, err, domain.ErrUserExists)
	assert.Len(t, notifier.broadcasts, 1, "failed signup broadcasts nothing")
}

func TestUserService_Login(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(slog.Default(), repo, newRecordingNotifier())

	registered, err := svc.Register(context.Background(), "Alice", "alice", "hunter22", "")
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "hunter22")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
