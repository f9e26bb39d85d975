// Package memory holds map-backed repositories for local development and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
)

type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *AccountRepository) FindByEmailWithUnexpiredOTP(ctx context.Context, email string, now time.Time) (*models.Account, error) {
	a, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !a.PendingOTP.Live(now) {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *AccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.byID[account.ID]; ok {
		return repository.ErrDuplicate
	}
	r.byID[account.ID] = account.Clone()
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *AccountRepository) Save(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byID[account.ID]; ok && prev.Email != account.Email {
		delete(r.byEmail, prev.Email)
	}
	r.byID[account.ID] = account.Clone()
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *AccountRepository) HealthCheck(context.Context) error { return nil }

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*models.Product)}
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = slices.Clone(p.Images)
	return &c
}

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; ok {
		return repository.ErrDuplicate
	}
	r.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(p), nil
}

// snapshot copies every product under the read lock, ordered by less.
func (r *ProductRepository) snapshot(less func(a, b *models.Product) bool) []*models.Product {
	r.mu.RLock()
	out := make([]*models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, cloneProduct(p))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b *models.Product) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *ProductRepository) List(context.Context) ([]*models.Product, error) {
	return r.snapshot(newestFirst), nil
}

func (r *ProductRepository) TopRated(_ context.Context, limit int) ([]*models.Product, error) {
	out := r.snapshot(func(a, b *models.Product) bool {
		if a.Rating == b.Rating {
			return newestFirst(a, b)
		}
		return a.Rating > b.Rating
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepository) ListByCategory(_ context.Context, category models.Category, excludeID string, limit int) ([]*models.Product, error) {
	out := []*models.Product{}
	for _, p := range r.snapshot(newestFirst) {
		if p.Category != category || p.ID == excludeID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *ProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return repository.ErrNotFound
	}
	r.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) HealthCheck(context.Context) error { return nil }
