package api

import (
	"github.com/gofiber/fiber/v2"

	"mailhaven/mail"
	"mailhaven/middleware"
	"mailhaven/models"
	"mailhaven/storage"
	"mailhaven/utils"
)

// AccountHandler manages connected mailboxes for the authenticated
// user. Ownership checks live in the store; this layer only shapes
// requests and responses, and it never returns a password field.
type AccountHandler struct {
	storage *storage.AccountStore
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountStorage *storage.AccountStore) *AccountHandler {
	return &AccountHandler{storage: accountStorage}
}

// CreateAccount connects a new mailbox. When host settings are
// supplied they are used verbatim; otherwise they are detected from
// the email domain.
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req storage.AddAccountInput
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	var account *models.Account
	var err error
	if req.IMAPHost != "" && req.SMTPHost != "" {
		account, err = h.storage.CreateAccount(userID, storage.CreateAccountInput{
			Email:    req.Email,
			Password: req.Password,
			Provider: req.Provider,
			IMAPHost: req.IMAPHost,
			IMAPPort: req.IMAPPort,
			SMTPHost: req.SMTPHost,
			SMTPPort: req.SMTPPort,
		})
	} else {
		account, err = h.storage.AddAccount(userID, req)
	}
	if err != nil {
		return err
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"account": account.Sanitized(),
	})
}

// GetAccounts retrieves all accounts for the current user
func (h *AccountHandler) GetAccounts(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	accounts, err := h.storage.GetAccounts(userID)
	if err != nil {
		return utils.InternalServerError("Failed to retrieve accounts", err)
	}

	sanitized := make([]models.Account, 0, len(accounts))
	for _, acc := range accounts {
		sanitized = append(sanitized, acc.Sanitized())
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"accounts": sanitized,
	})
}

// GetActiveAccount returns the user's single active account, if any.
func (h *AccountHandler) GetActiveAccount(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	account, err := h.storage.GetActiveAccount(userID)
	if err != nil {
		return utils.InternalServerError("Failed to retrieve active account", err)
	}
	if account == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"account": nil,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"account": account.Sanitized(),
	})
}

// ActivateAccount makes the named account the user's single active
// one, deactivating all siblings.
func (h *AccountHandler) ActivateAccount(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	accountID := c.Params("id")
	if accountID == "" {
		return utils.BadRequestError("Account ID required", nil)
	}

	if err := h.storage.SetActiveAccount(userID, accountID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Active account updated",
	})
}

// DeleteAccount deletes an account
func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	accountID := c.Params("id")
	if accountID == "" {
		return utils.BadRequestError("Account ID required", nil)
	}

	if err := h.storage.DeleteAccount(userID, accountID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Account deleted successfully",
	})
}

// UpdatePassword re-encrypts and stores a new mailbox password.
func (h *AccountHandler) UpdatePassword(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	accountID := c.Params("id")
	if accountID == "" {
		return utils.BadRequestError("Account ID required", nil)
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	if req.Password == "" {
		return utils.BadRequestError("Password required", nil)
	}

	if err := h.storage.UpdatePassword(userID, accountID, req.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password updated",
	})
}

// TestConnection probes a mailbox configuration (IMAP login plus SMTP
// auth) without saving anything.
func (h *AccountHandler) TestConnection(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		IMAPHost string `json:"imapHost"`
		IMAPPort int    `json:"imapPort"`
		SMTPHost string `json:"smtpHost"`
		SMTPPort int    `json:"smtpPort"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	if req.Email == "" || req.Password == "" || req.IMAPHost == "" || req.SMTPHost == "" {
		return utils.BadRequestError("Missing required fields", nil)
	}

	err := mail.CheckConnection(mail.CheckConfig{
		Email:    req.Email,
		Password: req.Password,
		IMAPHost: req.IMAPHost,
		IMAPPort: portOr(req.IMAPPort, storage.DefaultIMAPPort),
		SMTPHost: req.SMTPHost,
		SMTPPort: portOr(req.SMTPPort, storage.DefaultSMTPPort),
	})
	if err != nil {
		utils.Log.Warn("connection test failed for %s: %v", req.Email, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "connection test failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Connection verified",
	})
}

func portOr(port, fallback int) int {
	if port != 0 {
		return port
	}
	return fallback
}
