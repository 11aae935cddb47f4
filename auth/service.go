// Package auth provides the primitives that gate the credential vault
// and the delivery scheduler: password hashing, bearer-token issuance
// and the signup/login flows.
package auth

import (
	"errors"
	"time"

	"mailhaven/models"
	"mailhaven/storage"
	"mailhaven/utils"
)

// Service implements user signup and login on top of the user store.
type Service struct {
	users  *storage.UserStore
	hasher *Hasher
	tokens *TokenManager
	logger *utils.Logger
}

// NewService wires the auth service.
func NewService(users *storage.UserStore, hasher *Hasher, tokens *TokenManager, logger *utils.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Signup registers a new user and returns it with a fresh token.
// Uniqueness rides on the user store's pre-insert index check; the
// check and insert are a single store transaction.
func (s *Service) Signup(email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", utils.BadRequestError("email and password are required", nil)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.CreateUser(email, hash)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.logger.WithField("userId", user.ID).Info("user signed up")
	return user, token, nil
}

// Login authenticates a user and returns it with a fresh token. An
// unknown email and a wrong password both fail with the identical
// ErrInvalidCredentials, so callers cannot probe which addresses are
// registered.
func (s *Service) Login(email, password string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, "", utils.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return nil, "", utils.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		s.logger.Warn("failed to record last login for %s: %v", user.ID, err)
	} else {
		user.LastLoginAt = time.Now()
	}

	token, err := s.tokens.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}
