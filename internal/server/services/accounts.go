package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/base32x"
	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tgotp/internal/totp"
)

const (
	DefaultIcon  = "key"
	DefaultColor = "#2196F3"

	invalidSecretMessage = "invalid secret"
)

// accountSecretAD is authenticated with every sealed secret.
var accountSecretAD = []byte("tgotp/account-secret")

// SecretBox seals account secrets at rest. *cryptox.Box implements it.
type SecretBox interface {
	Seal(plaintext, additional []byte) (ciphertext, nonce []byte, err error)
	Open(ciphertext, nonce, additional []byte) ([]byte, error)
}

// AccountInput carries user-editable account fields. Secret is ignored by
// Update.
type AccountInput struct {
	Label   string
	Service string
	Secret  string
	Icon    string
	Color   string
}

// AccountView is an account as shown to its owner: the current code instead
// of the secret. Error is set when the stored secret cannot produce a code.
type AccountView struct {
	ID       int64
	Label    string
	Service  string
	Icon     string
	Color    string
	Position int
	Code     string
	Error    string
}

// Listing is every account of a user with codes from one time window, so
// RemainingTime is valid for all of them.
type Listing struct {
	Accounts      []AccountView
	RemainingTime int
}

type AccountService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	box         SecretBox
	log         logging.Logger
	now         func() time.Time
}

func NewAccountService(tx dbx.Transactor, m repomanager.RepositoryManager, box SecretBox, log logging.Logger) *AccountService {
	return &AccountService{tx: tx, repomanager: m, box: box, log: log, now: time.Now}
}

func (s *AccountService) List(ctx context.Context, userID int64) (*Listing, error) {
	rows, err := s.repomanager.Accounts(s.tx.Conn()).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}

	w := totp.WindowAt(s.now())
	listing := &Listing{Accounts: make([]AccountView, 0, len(rows)), RemainingTime: w.Remaining}

	for _, a := range rows {
		view := AccountView{
			ID: a.ID, Label: a.Label, Service: a.Service,
			Icon: a.Icon, Color: a.Color, Position: a.Position,
		}
		code, err := s.code(w, a)
		if err != nil {
			s.log.Warn(ctx, "cannot derive code", "account_id", a.ID, "error", err)
			view.Error = invalidSecretMessage
		} else {
			view.Code = code
		}
		listing.Accounts = append(listing.Accounts, view)
	}
	return listing, nil
}

func (s *AccountService) code(w totp.Window, a *models.Account) (string, error) {
	secret, err := s.box.Open(a.EncryptedSecret, a.Nonce, accountSecretAD)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(secret)
	return w.Code(string(secret))
}

// Create validates in and appends the account after the user's last one.
func (s *AccountService) Create(ctx context.Context, userID int64, in AccountInput) (*models.Account, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", common.ErrorValidation)
	}
	secret := base32x.Normalize(in.Secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", common.ErrorValidation)
	}
	if err := totp.ValidateSecret(secret); err != nil {
		return nil, err
	}

	ct, nonce, err := s.box.Seal([]byte(secret), accountSecretAD)
	if err != nil {
		return nil, fmt.Errorf("error sealing secret: %w", err)
	}

	account := &models.Account{
		UserID:          userID,
		Label:           label,
		Service:         strings.TrimSpace(in.Service),
		EncryptedSecret: ct,
		Nonce:           nonce,
		Icon:            orDefault(in.Icon, DefaultIcon),
		Color:           orDefault(in.Color, DefaultColor),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, userID); err != nil {
			return err
		}
		repo := s.repomanager.Accounts(tx)
		last, err := repo.MaxPosition(ctx, userID)
		if err != nil {
			return err
		}
		account.Position = last + 1
		_, err = repo.Create(ctx, account)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.log.Info(ctx, "account created", "user_id", userID, "account_id", account.ID)
	return account, nil
}

// CreateFromURI creates an account from an otpauth://totp URI. The URI
// account name becomes the label, falling back to the issuer.
func (s *AccountService) CreateFromURI(ctx context.Context, userID int64, uri, icon, color string) (*models.Account, error) {
	p, err := totp.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	label := p.Label
	if label == "" {
		label = p.Service
	}
	return s.Create(ctx, userID, AccountInput{
		Label: label, Service: p.Service, Secret: p.Secret, Icon: icon, Color: color,
	})
}

func (s *AccountService) Update(ctx context.Context, userID, accountID int64, in AccountInput) error {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return fmt.Errorf("%w: label is required", common.ErrorValidation)
	}
	err := s.repomanager.Accounts(s.tx.Conn()).Update(ctx, &models.Account{
		ID:      accountID,
		UserID:  userID,
		Label:   label,
		Service: strings.TrimSpace(in.Service),
		Icon:    orDefault(in.Icon, DefaultIcon),
		Color:   orDefault(in.Color, DefaultColor),
	})
	return wrapNotFound("error updating account", err)
}

func (s *AccountService) Delete(ctx context.Context, userID, accountID int64) error {
	return wrapNotFound("error deleting account", s.repomanager.Accounts(s.tx.Conn()).Delete(ctx, userID, accountID))
}

func (s *AccountService) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repomanager.Accounts(s.tx.Conn()).DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting accounts: %w", err)
	}
	s.log.Info(ctx, "accounts deleted", "user_id", userID, "count", n)
	return n, nil
}

func (s *AccountService) Reorder(ctx context.Context, userID, accountID int64, position int) error {
	if position < 0 {
		return fmt.Errorf("%w: position must not be negative", common.ErrorValidation)
	}
	return wrapNotFound("error moving account", s.repomanager.Accounts(s.tx.Conn()).SetPosition(ctx, userID, accountID, position))
}

func wrapNotFound(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
