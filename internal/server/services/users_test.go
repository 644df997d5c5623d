package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/auth"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/tgotp/internal/server/repositories/users"
)

func TestAuthenticate_CreatesThenReuses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u1, err := e.users.Authenticate(ctx, initData(`{"id":42,"first_name":"Ann","username":"ann"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), u1.TelegramID)
	assert.Equal(t, "ann", u1.Username)
	assert.Equal(t, "en", u1.LanguageCode)

	u2, err := e.users.Authenticate(ctx, initData(`{"id":42,"first_name":"Ann","username":"ann_new","language_code":"de"}`))
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, "ann_new", u2.Username)
	assert.Equal(t, "de", u2.LanguageCode)
}

func TestAuthenticate_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Authenticate(ctx, "user=%7B%7D&auth_date=1")
	assert.ErrorIs(t, err, common.ErrMissingHash)

	forged := auth.Encode(map[string]string{"user": `{"id":1}`}, "other-bot")
	_, err = e.users.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, common.ErrSignatureMismatch)

	_, err = e.users.Authenticate(ctx, initData(`{"id":`))
	assert.ErrorIs(t, err, common.ErrMissingUser)
	assert.ErrorIs(t, err, common.ErrMalformedUserField)

	_, err = e.users.Authenticate(ctx, auth.Encode(map[string]string{"auth_date": "1"}, testBotToken))
	assert.ErrorIs(t, err, common.ErrMissingUser)
}

func TestAuthenticate_PartlyMalformedUser(t *testing.T) {
	e := newEnv(t)

	u, err := e.users.Authenticate(context.Background(), initData(`{"id":42,"username":7,"first_name":"Ann"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.TelegramID)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Empty(t, u.Username)
	assert.Equal(t, "en", u.LanguageCode)

	_, err = e.users.Authenticate(context.Background(), initData(`{"id":"42","first_name":"Ann"}`))
	assert.ErrorIs(t, err, common.ErrMissingUser)
	assert.ErrorIs(t, err, common.ErrMalformedUserField)
}

type failingUsersRepo struct {
	usersrepo.Repository
	err error
}

func (f *failingUsersRepo) GetOrCreate(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	users usersrepo.Repository
}

func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository { return m.users }

func TestAuthenticate_StoreError(t *testing.T) {
	boom := errors.New("boom")
	s := NewUserService(dbx.NewLockTransactor(), &fakeRepoManager{users: &failingUsersRepo{err: boom}},
		auth.NewVerifier(testBotToken), logging.Nop())

	_, err := s.Authenticate(context.Background(), initData(`{"id":1}`))
	assert.ErrorIs(t, err, boom)
}

func TestPIN(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, 1)

	assert.ErrorIs(t, e.users.VerifyPIN(ctx, u, "1234"), common.ErrNoPinSet)

	for _, bad := range []string{"", "123", "1234567890123", "12a4", " 1234"} {
		assert.ErrorIs(t, e.users.SetPIN(ctx, u.ID, bad), common.ErrorValidation, "pin %q", bad)
	}

	require.NoError(t, e.users.SetPIN(ctx, u.ID, "0420"))
	u, err := e.rm.Users(nil).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(u.PinHash), "0420")

	require.NoError(t, e.users.VerifyPIN(ctx, u, "0420"))
	assert.ErrorIs(t, e.users.VerifyPIN(ctx, u, "0421"), common.ErrIncorrectPIN)

	assert.Error(t, e.users.SetPIN(ctx, 999, "1234"))
}

func TestSetKeepUnlocked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, 1)

	require.NoError(t, e.users.SetKeepUnlocked(ctx, u.ID, true))
	got, _ := e.rm.Users(nil).GetByID(ctx, u.ID)
	assert.True(t, got.KeepUnlocked)

	assert.ErrorIs(t, e.users.SetKeepUnlocked(ctx, 999, true), common.ErrorNotFound)
}

func TestValidPIN(t *testing.T) {
	assert.True(t, validPIN("1234"))
	assert.True(t, validPIN("123456789012"))
	assert.False(t, validPIN("١٢٣٤"))
}
