package storage

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"mailhaven/models"
	"mailhaven/utils"
)

// UserStore manages registered users. The UserEmails bucket indexes
// lowercased email -> user id so lookups do not scan the whole user
// set.
type UserStore struct {
	db *bbolt.DB
}

// NewUserStore creates a user store on the shared database.
func NewUserStore(db *bbolt.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser persists a new user. Email uniqueness is enforced by a
// pre-insert index check inside the same transaction.
func (s *UserStore) CreateUser(email, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Preferences:  map[string]string{},
		CreatedAt:    time.Now(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketUserEmails)
		emailKey := []byte(strings.ToLower(email))
		if emails.Get(emailKey) != nil {
			return utils.ErrAlreadyExists
		}
		if err := emails.Put(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return saveUser(tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserStore) GetUser(userID string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		u, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user through the email index.
func (s *UserStore) GetUserByEmail(email string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUserEmails).Get([]byte(strings.ToLower(email)))
		if id == nil {
			return utils.ErrNotFound
		}
		u, err := loadUser(tx, string(id))
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLastLogin updates the last login timestamp
func (s *UserStore) UpdateLastLogin(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		user.LastLoginAt = time.Now()
		return saveUser(tx, user)
	})
}

// UpdatePreferences replaces the user's preference map.
func (s *UserStore) UpdatePreferences(userID string, prefs map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		user.Preferences = prefs
		return saveUser(tx, user)
	})
}

func saveUser(tx *bbolt.Tx, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}
	return tx.Bucket(bucketUsers).Put([]byte(user.ID), data)
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}

func loadUser(tx *bbolt.Tx, userID string) (*models.User, error) {
	data := tx.Bucket(bucketUsers).Get([]byte(userID))
	if data == nil {
		return nil, utils.ErrNotFound
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}
