package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tgotp/internal/cryptox"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/auth"
	"github.com/dmitrijs2005/tgotp/internal/server/config"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
)

const testBotToken = "123456:TEST"

// base32 of "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type env struct {
	tx        *dbx.LockTransactor
	rm        *repomanager.MemoryRepositoryManager
	users     *UserService
	accounts  *AccountService
	transfers *TransferService
	clock     *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBox(t *testing.T) *cryptox.Box {
	t.Helper()
	box, err := cryptox.NewBox(bytes.Repeat([]byte{1}, cryptox.KeySize))
	require.NoError(t, err)
	return box
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tx := dbx.NewLockTransactor()
	rm := repomanager.NewMemoryRepositoryManager()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	users := NewUserService(tx, rm, auth.NewVerifier(testBotToken), logging.Nop())
	users.bcryptCost = bcrypt.MinCost

	accounts := NewAccountService(tx, rm, newTestBox(t), logging.Nop())
	accounts.now = clock.Now

	transfers := NewTransferService(tx, rm, cfg, logging.Nop())
	transfers.now = clock.Now

	return &env{tx: tx, rm: rm, users: users, accounts: accounts, transfers: transfers, clock: clock}
}

func initData(userJSON string) string {
	return auth.Encode(map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAH",
		"user":      userJSON,
	}, testBotToken)
}

func (e *env) user(t *testing.T, telegramID int64) *models.User {
	t.Helper()
	u, err := e.rm.Users(nil).GetOrCreate(context.Background(), &models.User{TelegramID: telegramID})
	require.NoError(t, err)
	return u
}

func (e *env) addAccounts(t *testing.T, userID int64, labels ...string) {
	t.Helper()
	for _, l := range labels {
		_, err := e.accounts.Create(context.Background(), userID, AccountInput{Label: l, Service: "svc-" + l, Secret: rfcSecret})
		require.NoError(t, err)
	}
}

func labels(l *Listing) []string {
	out := make([]string, 0, len(l.Accounts))
	for _, a := range l.Accounts {
		out = append(out, a.Label)
	}
	return out
}
