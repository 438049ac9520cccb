package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

type UserService struct {
	repo     domain.UserRepository
	notifier contracts.Notifier
	log      *slog.Logger
}

func NewUserService(log *slog.Logger, repo domain.UserRepository, notifier contracts.Notifier) *UserService {
	return &UserService{
		log:      log,
		repo:     repo,
		notifier: notifier,
	}
}

// Register creates an account and announces the new public profile to every
// live connection. The announcement is independent of presence state: the new
// user has no connection yet.
func (s *UserService) Register(
	ctx context.Context,
	displayName, handle, password, avatarURL string,
) (*domain.User, error) {
	handle = strings.TrimSpace(strings.ToLower(handle))
	displayName = strings.TrimSpace(displayName)
	if handle == "" || displayName == "" {
		return nil, errors.New("display name and handle are required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.New(),
		DisplayName:  displayName,
		Handle:       handle,
		AvatarURL:    avatarURL,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "users - register - create failed", "handle", handle, "err", err)
		return nil, err
	}
	s.notifier.BroadcastAll(ctx, domain.UserCreatedEvent{
		Type: domain.TypeUserCreated,
		User: user.Profile(),
	})
	s.log.InfoContext(ctx, "users - register - success", "user_id", user.ID, "handle", handle)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, handle, password string) (*domain.User, error) {
	handle = strings.TrimSpace(strings.ToLower(handle))
	user, err := s.repo.GetUserByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.log.ErrorContext(ctx, "users - login - lookup failed", "handle", handle, "err", err)
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	s.log.InfoContext(ctx, "users - login - success", "user_id", user.ID, "handle", handle)
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
