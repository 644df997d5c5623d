package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

// MemoryRepository keeps users in process memory. LockForUpdate only checks
// existence; callers serialize units of work with dbx.LockTransactor.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[int64]*models.User
	byTelegram map[int64]int64
	seq        int64
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[int64]*models.User),
		byTelegram: make(map[int64]int64),
		now:        time.Now,
	}
}

func (r *MemoryRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	id, ok := r.byTelegram[user.TelegramID]
	if !ok {
		r.seq++
		id = r.seq
		r.byTelegram[user.TelegramID] = id
		r.byID[id] = &models.User{ID: id, TelegramID: user.TelegramID, CreatedAt: now}
	}

	u := r.byID[id]
	u.Username = user.Username
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.LanguageCode = user.LanguageCode
	u.LastLogin = now

	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) LockForUpdate(ctx context.Context, id int64) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *MemoryRepository) SetPinHash(ctx context.Context, id int64, hash []byte) error {
	return r.modify(id, func(u *models.User) { u.PinHash = append([]byte(nil), hash...) })
}

func (r *MemoryRepository) SetKeepUnlocked(ctx context.Context, id int64, enabled bool) error {
	return r.modify(id, func(u *models.User) { u.KeepUnlocked = enabled })
}

func (r *MemoryRepository) modify(id int64, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}
