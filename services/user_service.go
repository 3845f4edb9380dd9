package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/milosamec/engravape/auth"
	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type UserService struct {
	users  UserRepository
	tokens TokenIssuer
	logger *zap.Logger
	newID  func() string
}

func NewUserService(users UserRepository, tokens TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: logger,
		newID:  uuid.NewString,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", models.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, minPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{ID: s.newID(), Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: user already exists", models.ErrConflict)
		}
		return nil, s.persistenceError(ctx, "create user", err)
	}

	s.logger.Info("User registered",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("user_id", user.ID),
	)
	return s.authResponse(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	ctx, span := tracer.Start(ctx, "UserService.Login")
	defer span.End()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.persistenceError(ctx, "find user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, models.ErrInvalidCredentials
	}
	return s.authResponse(user)
}

func (s *UserService) GetProfile(ctx context.Context, requester models.Requester) (*models.User, error) {
	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	return s.find(ctx, requester.UserID)
}

// UpdateProfile changes the requester's name and email. A non-empty password
// goes through ChangePassword.
func (s *UserService) UpdateProfile(ctx context.Context, requester models.Requester, req models.UpdateProfileRequest) (*models.AuthResponse, error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	user, err := s.find(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(req.Email); email != "" {
		user.Email = email
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != "" {
		if err := s.ChangePassword(ctx, user.ID, req.Password); err != nil {
			return nil, err
		}
	}
	return s.authResponse(user)
}

func (s *UserService) ChangePassword(ctx context.Context, userID, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, minPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("user %w", models.ErrNotFound)
		}
		return s.persistenceError(ctx, "update password", err)
	}
	s.logger.Info("Password changed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("user_id", userID),
	)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, requester models.Requester) ([]models.User, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, s.persistenceError(ctx, "list users", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, requester models.Requester, id string) (*models.User, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *UserService) UpdateUser(ctx context.Context, requester models.Requester, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(req.Email); email != "" {
		user.Email = email
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, requester models.Requester, id string) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}
	if id == requester.UserID {
		return fmt.Errorf("%w: admins cannot delete their own account", models.ErrValidation)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("user %w", models.ErrNotFound)
	}

	err := s.users.Delete(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("user %w", models.ErrNotFound)
	case errors.Is(err, models.ErrConflict):
		return err
	case err != nil:
		return s.persistenceError(ctx, "delete user", err)
	}

	s.logger.Info("User deleted",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("user_id", id),
		zap.String("deleted_by", requester.UserID),
	)
	return nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes and resets
// the password of an existing account with that email.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		if _, err := s.Register(ctx, models.RegisterRequest{Name: name, Email: email, Password: password}); err != nil {
			return err
		}
		user, err = s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return s.persistenceError(ctx, "find admin", err)
	}

	if !user.IsAdmin {
		user.IsAdmin = true
		if err := s.save(ctx, user); err != nil {
			return err
		}
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		if err := s.ChangePassword(ctx, user.ID, password); err != nil {
			return err
		}
	}

	s.logger.Info("Admin account ensured", zap.String("email", email))
	return nil
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, s.persistenceError(ctx, "get user", err)
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	err := s.users.Update(ctx, user)
	switch {
	case errors.Is(err, models.ErrConflict):
		return fmt.Errorf("%w: email already in use", models.ErrConflict)
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("user %w", models.ErrNotFound)
	case err != nil:
		return s.persistenceError(ctx, "update user", err)
	}
	return nil
}

func (s *UserService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Token:   token,
	}, nil
}

func (s *UserService) persistenceError(ctx context.Context, op string, err error) error {
	s.logger.Error("Storage operation failed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("operation", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, op, err)
}

func requireAdmin(requester models.Requester) error {
	if requester.UserID == "" {
		return models.ErrUnauthenticated
	}
	if !requester.IsAdmin {
		return fmt.Errorf("%w as an admin", models.ErrForbidden)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
