package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[int64]*models.Account
	seq  int64
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[int64]*models.Account), now: time.Now}
}

func clone(a *models.Account) *models.Account {
	cp := *a
	cp.EncryptedSecret = append([]byte(nil), a.EncryptedSecret...)
	cp.Nonce = append([]byte(nil), a.Nonce...)
	return &cp
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Account
	for _, a := range r.rows {
		if a.UserID == userID {
			result = append(result, clone(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MemoryRepository) MaxPosition(ctx context.Context, userID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	highest := -1
	for _, a := range r.rows {
		if a.UserID == userID && a.Position > highest {
			highest = a.Position
		}
	}
	return highest, nil
}

func (r *MemoryRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	a.ID = r.seq
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = clone(a)
	return a, nil
}

func (r *MemoryRepository) owned(userID, id int64) (*models.Account, error) {
	a, ok := r.rows[id]
	if !ok || a.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (r *MemoryRepository) Update(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.owned(a.UserID, a.ID)
	if err != nil {
		return err
	}
	row.Label = a.Label
	row.Service = a.Service
	row.Icon = a.Icon
	row.Color = a.Color
	row.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.owned(userID, id); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.rows {
		if a.UserID == userID {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) SetPosition(ctx context.Context, userID, id int64, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.owned(userID, id)
	if err != nil {
		return err
	}
	row.Position = position
	row.UpdatedAt = r.now()
	return nil
}
