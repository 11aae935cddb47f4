package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"mailhaven/auth"
	"mailhaven/utils"
)

// AuthHandler exposes signup and login.
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new user and returns a bearer token.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	user, token, err := h.service.Signup(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrAlreadyExists) {
			return utils.ConflictError("An account with that email already exists", nil)
		}
		return err
	}

	user.PasswordHash = ""
	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

// Login authenticates a user and returns a bearer token. Unknown
// emails and wrong passwords produce the same response.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	user, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) {
			return utils.UnauthorizedError("Invalid email or password", nil)
		}
		return err
	}

	user.PasswordHash = ""
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"token":   token,
	})
}
