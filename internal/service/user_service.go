package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo UserStore
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterTelegramUser creates a student for an unknown Telegram account or
// refreshes the names of a known one.
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if existing != nil {
		if existing.Username == username && existing.FirstName == firstName && existing.LastName == lastName {
			return existing, nil
		}
		existing.Username = username
		existing.FirstName = firstName
		existing.LastName = lastName
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)
		return existing, nil
	}

	user := &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       model.RoleStudent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
	)
	return user, nil
}

// CreateUser adds a roster entry, e.g. from the admin CLI.
func (s *UserService) CreateUser(ctx context.Context, user *model.User) error {
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	if user.FirstName == "" && user.Username == "" {
		return invalid("first_name", "name or username is required")
	}
	if user.Role == "" {
		user.Role = model.RoleStudent
	}
	if !user.Role.Valid() {
		return invalid("role", "unknown role %q", user.Role)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("User created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func (s *UserService) SetRole(ctx context.Context, userID int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.Info("User role changed", zap.Int64("user_id", userID), zap.String("role", string(role)))
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByTelegramID returns nil, nil for unknown accounts.
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// ListStudents is the roster picker behind session creation.
func (s *UserService) ListStudents(ctx context.Context, actor *model.User, search string) ([]*model.User, error) {
	if actor == nil || !actor.CanBook() {
		return nil, ErrForbidden
	}
	students, err := s.userRepo.ListStudents(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
