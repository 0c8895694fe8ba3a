package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// UserAccounts is the account service consumed by the handlers.
type UserAccounts interface {
	Register(ctx context.Context, in service.RegisterInput) error
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, in service.UpdateInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (*domain.User, error)
}

const registeredMessage = "User has successfully registered"

// UsersHandler exposes the account endpoints.
type UsersHandler struct {
	users UserAccounts
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserAccounts) *UsersHandler {
	return &UsersHandler{users: users}
}

// Register handles POST /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Registration error", []string{"invalid payload"})
	}

	err := h.users.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: registeredMessage})
}

// Login handles POST /users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewLoginError(err)
	}

	res, err := h.users.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     res.Token,
		UserID:    res.UserID,
		User:      res.Name,
		ExpiresAt: res.ExpiresAt,
	})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// Update handles PUT /users. Responds with the updated record or null.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.UpdateUser(c.UserContext(), service.UpdateInput{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IsBlocked: req.IsBlocked,
		IsOnline:  req.IsOnline,
	})
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// Delete handles DELETE /users/:id. Responds with the deleted record or null.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	user, err := h.users.DeleteUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}
