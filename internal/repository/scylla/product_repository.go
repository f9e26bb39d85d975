package scylla

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gocql/gocql"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
)

// ProductRepository keeps the catalog in a single unpartitioned table.
// Ordering queries scan the table and sort client side, which suits a
// catalog of a few hundred items.
type ProductRepository struct {
	client *ScyllaClient
}

func NewProductRepository(client *ScyllaClient) *ProductRepository {
	return &ProductRepository{client: client}
}

func scanProduct(scan func(dest ...any) error) (*models.Product, error) {
	var (
		p        models.Product
		category string
	)
	err := scan(&p.ID, &p.Name, &p.Amount, &p.Pic, &p.Images, &category,
		&p.Description, &p.Stock, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = models.Category(category)
	return &p, nil
}

func (r *ProductRepository) write(ctx context.Context, p *models.Product) error {
	return r.client.Query(ctx, r.client.Statements.InsertProduct,
		p.ID, p.Name, p.Amount, p.Pic, p.Images, string(p.Category),
		p.Description, p.Stock, p.Rating, p.ReviewsCount, p.CreatedAt, p.UpdatedAt).Exec()
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.write(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	query := r.client.Query(ctx, r.client.Statements.GetProduct, id)
	p, err := scanProduct(func(dest ...any) error {
		return r.client.ScanWithRetry(query, dest...)
	})
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) all(ctx context.Context) ([]*models.Product, error) {
	scanner := r.client.Query(ctx, r.client.Statements.ListProducts).Iter().Scanner()

	products := make([]*models.Product, 0)
	for scanner.Next() {
		p, err := scanProduct(scanner.Scan)
		if err != nil {
			_ = scanner.Err()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*models.Product, error) {
	return r.all(ctx)
}

func (r *ProductRepository) TopRated(ctx context.Context, limit int) ([]*models.Product, error) {
	products, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Rating > products[j].Rating
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category models.Category, excludeID string, limit int) ([]*models.Product, error) {
	products, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Product, 0, limit)
	for _, p := range products {
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

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	if _, err := r.FindByID(ctx, product.ID); err != nil {
		return err
	}
	if err := r.write(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	applied, err := r.client.Query(ctx, r.client.Statements.DeleteProduct, id).MapScanCAS(map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !applied {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
