package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"mailhaven/config"
	"mailhaven/crypto"
	"mailhaven/models"
	"mailhaven/utils"
)

// AccountStore manages connected-mailbox records. Passwords are
// encrypted before they touch the database and only decrypted through
// GetDecryptedPassword. Every operation takes the calling user's id
// and re-checks ownership before touching a record.
type AccountStore struct {
	db       *bbolt.DB
	key      []byte
	platform config.PlatformConfig
}

// NewAccountStore creates an account store bound to the process
// encryption key.
func NewAccountStore(db *bbolt.DB, key []byte, platform config.PlatformConfig) *AccountStore {
	return &AccountStore{db: db, key: key, platform: platform}
}

// CreateAccountInput carries an explicit mailbox configuration.
type CreateAccountInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Provider string `json:"provider"`
	IMAPHost string `json:"imapHost"`
	IMAPPort int    `json:"imapPort"`
	SMTPHost string `json:"smtpHost"`
	SMTPPort int    `json:"smtpPort"`
}

// AddAccountInput is the heuristic variant: hosts and ports are filled
// in from the email domain when omitted.
type AddAccountInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Provider      string `json:"provider"`
	IMAPHost      string `json:"imapHost"`
	IMAPPort      int    `json:"imapPort"`
	SMTPHost      string `json:"smtpHost"`
	SMTPPort      int    `json:"smtpPort"`
	DisplayName   string `json:"displayName"`
	ZohoAccountID string `json:"zohoAccountId"`
	CreatedViaIAM bool   `json:"createdViaIAM"`
}

// CreateAccount encrypts the password and persists a new account with
// the supplied host configuration. New accounts start inactive.
func (s *AccountStore) CreateAccount(userID string, in CreateAccountInput) (*models.Account, error) {
	if in.Email == "" || in.Password == "" || in.IMAPHost == "" || in.SMTPHost == "" {
		return nil, utils.BadRequestError("email, password and host settings are required", nil)
	}

	provider := in.Provider
	if provider == "" {
		provider = DetectProvider(in.Email)
	}

	account := &models.Account{
		ID:       uuid.New().String(),
		UserID:   userID,
		Email:    in.Email,
		Provider: provider,
		IMAPHost: in.IMAPHost,
		IMAPPort: portOrDefault(in.IMAPPort, DefaultIMAPPort),
		SMTPHost: in.SMTPHost,
		SMTPPort: portOrDefault(in.SMTPPort, DefaultSMTPPort),
		IsActive: false,
	}

	if err := s.insert(account, in.Password); err != nil {
		return nil, err
	}
	return account, nil
}

// AddAccount persists a new account, filling provider, hosts and ports
// from the email domain when they are not supplied.
func (s *AccountStore) AddAccount(userID string, in AddAccountInput) (*models.Account, error) {
	if in.Email == "" || in.Password == "" {
		return nil, utils.BadRequestError("email and password are required", nil)
	}

	provider := in.Provider
	if provider == "" {
		provider = DetectProvider(in.Email)
	}

	imapHost, smtpHost := in.IMAPHost, in.SMTPHost
	if imapHost == "" || smtpHost == "" {
		detectedIMAP, detectedSMTP := resolveHosts(in.Email, in.CreatedViaIAM, s.platform)
		if imapHost == "" {
			imapHost = detectedIMAP
		}
		if smtpHost == "" {
			smtpHost = detectedSMTP
		}
	}

	account := &models.Account{
		ID:            uuid.New().String(),
		UserID:        userID,
		Email:         in.Email,
		Provider:      provider,
		IMAPHost:      imapHost,
		IMAPPort:      portOrDefault(in.IMAPPort, DefaultIMAPPort),
		SMTPHost:      smtpHost,
		SMTPPort:      portOrDefault(in.SMTPPort, DefaultSMTPPort),
		IsActive:      false,
		DisplayName:   in.DisplayName,
		ZohoAccountID: in.ZohoAccountID,
		CreatedViaIAM: in.CreatedViaIAM,
	}

	if err := s.insert(account, in.Password); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccounts retrieves all accounts owned by the user. Passwords stay
// ciphertext in the returned records.
func (s *AccountStore) GetAccounts(userID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var account models.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return fmt.Errorf("failed to unmarshal account: %v", err)
			}
			if account.UserID == userID {
				acc := account
				accounts = append(accounts, &acc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetActiveAccount returns the user's single active account, or nil if
// no account is active.
func (s *AccountStore) GetActiveAccount(userID string) (*models.Account, error) {
	accounts, err := s.GetAccounts(userID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account.IsActive {
			return account, nil
		}
	}
	return nil, nil
}

// GetAccount retrieves one account after an ownership check.
func (s *AccountStore) GetAccount(userID, accountID string) (*models.Account, error) {
	var account *models.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		a, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if a.UserID != userID {
			return utils.ErrUnauthorized
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetActiveAccount flips the active flag across the user's whole
// account set so that exactly the named account is active. The rewrite
// happens inside one bbolt update transaction, so readers never
// observe zero or two active accounts.
func (s *AccountStore) SetActiveAccount(userID, accountID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)

		target, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if target.UserID != userID {
			return utils.ErrUnauthorized
		}

		// Collect first: the bucket must not be mutated mid-iteration.
		var siblings []*models.Account
		err = bucket.ForEach(func(_, v []byte) error {
			var account models.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return fmt.Errorf("failed to unmarshal account: %v", err)
			}
			if account.UserID == userID {
				acc := account
				siblings = append(siblings, &acc)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now()
		for _, account := range siblings {
			active := account.ID == accountID
			if account.IsActive == active {
				continue
			}
			account.IsActive = active
			account.UpdatedAt = now
			if err := saveAccount(tx, account); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAccount removes an account after an ownership check. There is
// no guard against deleting the active account; the caller tolerates
// having no active account afterwards.
func (s *AccountStore) DeleteAccount(userID, accountID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		account, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if account.UserID != userID {
			return utils.ErrUnauthorized
		}
		return tx.Bucket(bucketAccounts).Delete([]byte(accountID))
	})
}

// GetDecryptedPassword decrypts and returns the account's plaintext
// password. Ownership is checked here too: only the owning user can
// recover a credential.
func (s *AccountStore) GetDecryptedPassword(userID, accountID string) (string, error) {
	account, err := s.GetAccount(userID, accountID)
	if err != nil {
		return "", err
	}
	plaintext, err := crypto.Decrypt(account.Password, s.key)
	if err != nil {
		return "", err
	}
	return plaintext, nil
}

// UpdatePassword re-encrypts and stores a new mailbox password.
func (s *AccountStore) UpdatePassword(userID, accountID, newPassword string) error {
	ciphertext, err := crypto.Encrypt(newPassword, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %v", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		account, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if account.UserID != userID {
			return utils.ErrUnauthorized
		}
		account.Password = ciphertext
		account.UpdatedAt = time.Now()
		return saveAccount(tx, account)
	})
}

// insert encrypts the password and writes a fresh record.
func (s *AccountStore) insert(account *models.Account, password string) error {
	ciphertext, err := crypto.Encrypt(password, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %v", err)
	}
	account.Password = ciphertext

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	return s.db.Update(func(tx *bbolt.Tx) error {
		return saveAccount(tx, account)
	})
}

func saveAccount(tx *bbolt.Tx, account *models.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %v", err)
	}
	return tx.Bucket(bucketAccounts).Put([]byte(account.ID), data)
}

func loadAccount(tx *bbolt.Tx, accountID string) (*models.Account, error) {
	data := tx.Bucket(bucketAccounts).Get([]byte(accountID))
	if data == nil {
		return nil, utils.ErrNotFound
	}
	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &account, nil
}

func portOrDefault(port, fallback int) int {
	if port != 0 {
		return port
	}
	return fallback
}
