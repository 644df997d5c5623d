package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/config"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
)

const tokenHexLen = 2 * common.TransferTokenBytes

// TransferService issues and redeems export tokens. A token lets exactly one
// other user copy the owner's accounts, once, before it expires.
type TransferService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	botUsername string
	log         logging.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

func NewTransferService(tx dbx.Transactor, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *TransferService {
	return &TransferService{
		tx:          tx,
		repomanager: m,
		ttl:         cfg.ExportTokenTTL,
		botUsername: cfg.BotUsername,
		log:         log,
		now:         time.Now,
		newToken: func() (string, error) {
			return common.MakeRandHexString(common.TransferTokenBytes)
		},
	}
}

// Issue creates a fresh token for ownerID. Any token the owner held before
// stops working.
func (s *TransferService) Issue(ctx context.Context, ownerID int64) (*models.ExportToken, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	now := s.now()
	t := &models.ExportToken{
		Token:     token,
		UserID:    ownerID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repomanager.ExportTokens(s.tx.Conn()).Replace(ctx, t); err != nil {
		return nil, fmt.Errorf("error saving token: %w", err)
	}

	s.log.Info(ctx, "export token issued", "user_id", ownerID, "expires_at", t.ExpiresAt)
	return t, nil
}

// Lookup returns a live token. Malformed and unknown tokens yield
// common.ErrTokenNotFound; expired ones common.ErrTokenExpired.
func (s *TransferService) Lookup(ctx context.Context, token string) (*models.ExportToken, error) {
	if !common.IsLowerHex(token, tokenHexLen) {
		return nil, common.ErrTokenNotFound
	}
	t, err := s.repomanager.ExportTokens(s.tx.Conn()).Find(ctx, token)
	if err != nil {
		return nil, tokenError(err)
	}
	if t.Expired(s.now()) {
		return nil, common.ErrTokenExpired
	}
	return t, nil
}

// OwnedLink returns the deep link of token when ownerID holds it. Tokens of
// other users are reported as not found.
func (s *TransferService) OwnedLink(ctx context.Context, ownerID int64, token string) (string, error) {
	t, err := s.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if t.UserID != ownerID {
		return "", common.ErrTokenNotFound
	}
	return s.DeepLink(t.Token), nil
}

// Import consumes token on behalf of importerID and copies the owner's
// accounts after the importer's existing ones, keeping their order. It
// returns the number of accounts copied.
//
// The token row is locked and then deleted only while still live, so of two
// concurrent imports exactly one succeeds and the other sees
// common.ErrTokenNotFound. A self-import is rejected before the delete and
// leaves the token usable.
func (s *TransferService) Import(ctx context.Context, token string, importerID int64) (int, error) {
	if !common.IsLowerHex(token, tokenHexLen) {
		return 0, common.ErrTokenNotFound
	}

	var count int
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.ExportTokens(tx)

		t, err := tokens.FindForUpdate(ctx, token)
		if err != nil {
			return tokenError(err)
		}
		now := s.now()
		if t.Expired(now) {
			return common.ErrTokenExpired
		}
		if t.UserID == importerID {
			return common.ErrSelfImportRejected
		}

		consumed, err := tokens.DeleteLive(ctx, token, now)
		if err != nil {
			return err
		}
		if !consumed {
			return common.ErrTokenNotFound
		}

		if err := s.repomanager.Users(tx).LockForUpdate(ctx, importerID); err != nil {
			return err
		}

		accounts := s.repomanager.Accounts(tx)
		source, err := accounts.ListByUser(ctx, t.UserID)
		if err != nil {
			return err
		}
		last, err := accounts.MaxPosition(ctx, importerID)
		if err != nil {
			return err
		}

		for i, a := range source {
			cp := &models.Account{
				UserID:          importerID,
				Label:           a.Label,
				Service:         a.Service,
				EncryptedSecret: a.EncryptedSecret,
				Nonce:           a.Nonce,
				Icon:            a.Icon,
				Color:           a.Color,
				Position:        last + 1 + i,
			}
			if _, err := accounts.Create(ctx, cp); err != nil {
				return err
			}
		}
		count = len(source)
		return nil
	})
	if err != nil {
		if isTransferError(err) {
			return 0, err
		}
		return 0, fmt.Errorf("error importing accounts: %w", err)
	}

	s.log.Info(ctx, "accounts imported", "user_id", importerID, "count", count)
	return count, nil
}

// PurgeExpired deletes tokens that can no longer be redeemed.
func (s *TransferService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.ExportTokens(s.tx.Conn()).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging tokens: %w", err)
	}
	return n, nil
}

// DeepLink is the bot link that hands token to the Mini App as its start
// parameter.
func (s *TransferService) DeepLink(token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", s.botUsername, common.DeepLinkMarker, token)
}

// ParseTransferToken extracts a token from a bare token, a start parameter
// ("exportdata<token>") or a full deep link.
func ParseTransferToken(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", common.ErrTokenNotFound
		}
		s = u.Query().Get("start")
		if s == "" {
			s = u.Query().Get("startapp")
		}
	}
	s = strings.TrimPrefix(s, common.DeepLinkMarker)
	s = strings.ToLower(s)
	if !common.IsLowerHex(s, tokenHexLen) {
		return "", common.ErrTokenNotFound
	}
	return s, nil
}

func tokenError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrTokenNotFound
	}
	return err
}

func isTransferError(err error) bool {
	return errors.Is(err, common.ErrTokenNotFound) || errors.Is(err, common.ErrSelfImportRejected)
}
