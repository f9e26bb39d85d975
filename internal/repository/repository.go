package repository

import (
	"context"
	"errors"
	"time"

	"vsgifts-api/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// AccountRepository persists accounts with last-writer-wins Save semantics.
// Implementations return ErrNotFound for missing records and ErrDuplicate
// when Create collides on email.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// FindByEmailWithUnexpiredOTP matches only when the account holds an
	// OTP whose expiry is strictly after now.
	FindByEmailWithUnexpiredOTP(ctx context.Context, email string, now time.Time) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Save(ctx context.Context, account *models.Account) error
	HealthCheck(ctx context.Context) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	// List returns every product, newest first.
	List(ctx context.Context) ([]*models.Product, error)
	TopRated(ctx context.Context, limit int) ([]*models.Product, error)
	ListByCategory(ctx context.Context, category models.Category, excludeID string, limit int) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error
}
