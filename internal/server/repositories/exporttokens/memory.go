package exporttokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

type MemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]models.ExportToken
	byUser  map[int64]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byToken: make(map[string]models.ExportToken),
		byUser:  make(map[int64]string),
	}
}

func (r *MemoryRepository) Replace(ctx context.Context, t *models.ExportToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[t.UserID]; ok {
		delete(r.byToken, prev)
	}
	r.byToken[t.Token] = *t
	r.byUser[t.UserID] = t.Token
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*models.ExportToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) FindForUpdate(ctx context.Context, token string) (*models.ExportToken, error) {
	return r.Find(ctx, token)
}

func (r *MemoryRepository) DeleteLive(ctx context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byToken[token]
	if !ok || t.Expired(now) {
		return false, nil
	}
	r.remove(t)
	return true, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.byToken {
		if t.Expired(now) {
			r.remove(t)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) remove(t models.ExportToken) {
	delete(r.byToken, t.Token)
	if r.byUser[t.UserID] == t.Token {
		delete(r.byUser, t.UserID)
	}
}
