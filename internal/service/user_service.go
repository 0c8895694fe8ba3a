package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, plain string) error
}

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
	TTL() time.Duration
}

// InputValidator reports field errors for a request struct.
type InputValidator interface {
	Validate(in any) []string
}

// RegisterInput is the accepted registration payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,maxbytes=72"`
	Name     string `json:"name" validate:"max=128"`
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Name      string
}

// UpdateInput lists the fields a caller may change. ID selects the record.
type UpdateInput struct {
	ID        string  `json:"_id"`
	Name      *string `json:"name" validate:"omitempty,max=128"`
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	Password  *string `json:"password" validate:"omitempty,min=1,maxbytes=72"`
	IsBlocked *bool   `json:"isBlocked"`
	IsOnline  *bool   `json:"isOnline"`
}

// Dependencies encapsulates collaborators of UserService.
type Dependencies struct {
	Users     repository.UserRepository
	Presence  repository.PresenceRepository
	Hasher    PasswordHasher
	Tokens    TokenIssuer
	Validator InputValidator
	Logger    *zap.Logger
}

// UserService coordinates the account lifecycle.
type UserService struct {
	users     repository.UserRepository
	presence  repository.PresenceRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	validator InputValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService builds the service.
func NewUserService(deps Dependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:     deps.Users,
		presence:  deps.Presence,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		validator: deps.Validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) error {
	if s.validator != nil {
		if errs := s.validator.Validate(in); len(errs) > 0 {
			return apperrors.NewValidationError("Registration error", errs)
		}
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return apperrors.NewDuplicateUser()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return s.registrationFailed(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return s.registrationFailed(err)
	}

	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		SignUpDate:   domain.FormatSignUpDate(s.now()),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return apperrors.NewDuplicateUser()
		}
		return s.registrationFailed(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return nil
}

func (s *UserService) registrationFailed(err error) error {
	s.logger.Error("registration failed", zap.Error(err))
	return apperrors.NewRegistrationError(err)
}

// Login authenticates a user and issues a session token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(in.Email)
		}
		return nil, s.loginFailed(err)
	}
	if user.IsBlocked {
		return nil, apperrors.NewBlockedUser()
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, s.loginFailed(err)
	}

	if err := s.users.MarkLoggedIn(ctx, user.ID, domain.FormatLastVisit(s.now())); err != nil {
		return nil, s.loginFailed(err)
	}

	token, exp, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, s.loginFailed(err)
	}

	if s.presence != nil {
		if err := s.presence.MarkOnline(ctx, user.ID, s.tokens.TTL()); err != nil {
			s.logger.Warn("presence update failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return &LoginResult{Token: token, ExpiresAt: exp, UserID: user.ID, Name: user.Name}, nil
}

func (s *UserService) loginFailed(err error) error {
	s.logger.Error("login failed", zap.Error(err))
	return apperrors.NewLoginError(err)
}

// ListUsers returns every record.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return users, nil
}

// UpdateUser applies the submitted fields. A nil user with nil error means
// no record matched.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateInput) (*domain.User, error) {
	if in.ID == "" {
		return nil, apperrors.NewMissingID()
	}
	if _, err := uuid.Parse(in.ID); err != nil {
		return nil, nil
	}
	if s.validator != nil {
		if errs := s.validator.Validate(in); len(errs) > 0 {
			return nil, apperrors.NewValidationError("Update error", errs)
		}
	}

	patch := domain.UserPatch{
		Name:      in.Name,
		Email:     in.Email,
		IsBlocked: in.IsBlocked,
		IsOnline:  in.IsOnline,
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		patch.PasswordHash = &hash
	}

	user, err := s.users.Update(ctx, in.ID, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, apperrors.NewDuplicateUser()
	case err != nil:
		return nil, apperrors.NewPersistenceError(err)
	}
	return user, nil
}

// DeleteUser removes a record and returns it, or nil when none matched.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, apperrors.NewMissingID()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	user, err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return user, nil
}
