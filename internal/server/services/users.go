// Package services contains server-side business logic: who the caller is
// (UserService), their TOTP accounts (AccountService) and moving accounts
// between users with single-use tokens (TransferService).
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/auth"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
)

const (
	minPINLength = 4
	maxPINLength = 12
)

// InitDataVerifier checks a raw init-data payload. *auth.Verifier is the
// production implementation.
type InitDataVerifier interface {
	Verify(payload string) (*auth.InitData, error)
}

// UserService resolves verified Telegram identities to stored users and
// manages their PIN lock.
type UserService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	verifier    InitDataVerifier
	log         logging.Logger
	bcryptCost  int
}

func NewUserService(tx dbx.Transactor, m repomanager.RepositoryManager, v InitDataVerifier, log logging.Logger) *UserService {
	return &UserService{
		tx:          tx,
		repomanager: m,
		verifier:    v,
		log:         log,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// Authenticate verifies initData and returns the matching user, creating it
// on first sight. Every call refreshes the stored profile and last_login.
func (s *UserService) Authenticate(ctx context.Context, initData string) (*models.User, error) {
	data, err := s.verifier.Verify(initData)
	if err != nil {
		return nil, err
	}
	if data.UserErr != nil {
		s.log.Warn(ctx, "init data user field is malformed", "error", data.UserErr)
	}
	if data.Identity.ID == 0 {
		if data.UserErr != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMissingUser, data.UserErr)
		}
		return nil, common.ErrMissingUser
	}

	id := data.Identity
	user, err := s.repomanager.Users(s.tx.Conn()).GetOrCreate(ctx, &models.User{
		TelegramID:   id.ID,
		Username:     id.Username,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		LanguageCode: id.LanguageCode,
	})
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// VerifyPIN checks pin against the user's stored hash.
func (s *UserService) VerifyPIN(ctx context.Context, user *models.User, pin string) error {
	if !user.HasPIN() {
		return common.ErrNoPinSet
	}
	if err := bcrypt.CompareHashAndPassword(user.PinHash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return common.ErrIncorrectPIN
		}
		return fmt.Errorf("error checking pin: %w", err)
	}
	return nil
}

// SetPIN stores a bcrypt hash of pin, which must be 4 to 12 digits.
func (s *UserService) SetPIN(ctx context.Context, userID int64, pin string) error {
	if !validPIN(pin) {
		return fmt.Errorf("%w: pin must be %d to %d digits", common.ErrorValidation, minPINLength, maxPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("error hashing pin: %w", err)
	}
	if err := s.repomanager.Users(s.tx.Conn()).SetPinHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("error saving pin: %w", err)
	}
	s.log.Info(ctx, "pin updated", "user_id", userID)
	return nil
}

func (s *UserService) SetKeepUnlocked(ctx context.Context, userID int64, enabled bool) error {
	if err := s.repomanager.Users(s.tx.Conn()).SetKeepUnlocked(ctx, userID, enabled); err != nil {
		return fmt.Errorf("error saving preference: %w", err)
	}
	return nil
}

func validPIN(pin string) bool {
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
