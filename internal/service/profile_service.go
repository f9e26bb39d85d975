package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/util"
)

const hydrateConcurrency = 8

// ProfileService manages the per-account address book, cart and wishlist.
type ProfileService struct {
	accounts repository.AccountRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

type CartLine struct {
	Product  *models.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

type CartView struct {
	Items       []CartLine `json:"items"`
	TotalItems  int        `json:"totalItems"`
	TotalAmount float64    `json:"totalAmount"`
}

func NewProfileService(accounts repository.AccountRepository, products repository.ProductRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		products: products,
		logger:   logger.Named("profile"),
	}
}

// CanAccess allows a caller to act on their own resources, and admins on anyone's.
func CanAccess(caller *models.Account, targetID string) error {
	if caller == nil {
		return ErrUnauthorized
	}
	if caller.ID != targetID && !caller.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}

func (s *ProfileService) load(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

func (s *ProfileService) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Addresses == nil {
		account.Addresses = []models.Address{}
	}
	return account, nil
}

func (s *ProfileService) AddAddress(ctx context.Context, accountID string, in AddressInput) ([]models.Address, error) {
	return s.mutateAddresses(ctx, accountID, func(list []models.Address) ([]models.Address, error) {
		return addAddress(list, in)
	})
}

func (s *ProfileService) UpdateAddress(ctx context.Context, accountID, addressID string, in AddressInput) ([]models.Address, error) {
	return s.mutateAddresses(ctx, accountID, func(list []models.Address) ([]models.Address, error) {
		return updateAddress(list, addressID, in)
	})
}

func (s *ProfileService) DeleteAddress(ctx context.Context, accountID, addressID string) ([]models.Address, error) {
	return s.mutateAddresses(ctx, accountID, func(list []models.Address) ([]models.Address, error) {
		return deleteAddress(list, addressID)
	})
}

func (s *ProfileService) mutateAddresses(ctx context.Context, accountID string, fn func([]models.Address) ([]models.Address, error)) ([]models.Address, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	list, err := fn(account.Addresses)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Address{}
	}
	account.Addresses = list
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save addresses: %w", err)
	}
	return list, nil
}

func (s *ProfileService) Cart(ctx context.Context, accountID string) (*CartView, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.cartView(ctx, account.Cart)
}

// AddToCart adds quantity (default 1) of a product, accumulating onto an
// existing line for the same product.
func (s *ProfileService) AddToCart(ctx context.Context, accountID, productID string, quantity *int) (*CartView, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, invalid("Product ID is required")
	}
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty < 1 {
		return nil, invalid("Quantity must be at least 1")
	}
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(account.Cart, func(item models.CartItem) bool { return item.ProductID == productID })
	if i >= 0 {
		account.Cart[i].Quantity += qty
	} else {
		account.Cart = append(account.Cart, models.CartItem{ProductID: productID, Quantity: qty})
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return s.cartView(ctx, account.Cart)
}

// RemoveFromCart drops the line for productID; an absent line is not an error.
func (s *ProfileService) RemoveFromCart(ctx context.Context, accountID, productID string) (*CartView, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	before := len(account.Cart)
	account.Cart = slices.DeleteFunc(account.Cart, func(item models.CartItem) bool { return item.ProductID == productID })
	if len(account.Cart) != before {
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save cart: %w", err)
		}
	}
	return s.cartView(ctx, account.Cart)
}

func (s *ProfileService) Wishlist(ctx context.Context, accountID string) ([]*models.Product, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, account.Wishlist)
}

func (s *ProfileService) AddToWishlist(ctx context.Context, accountID, productID string) ([]*models.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, invalid("Product ID is required")
	}
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(account.Wishlist, productID) {
		account.Wishlist = append(account.Wishlist, productID)
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save wishlist: %w", err)
		}
	}
	return s.hydrate(ctx, account.Wishlist)
}

func (s *ProfileService) RemoveFromWishlist(ctx context.Context, accountID, productID string) ([]*models.Product, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	before := len(account.Wishlist)
	account.Wishlist = slices.DeleteFunc(account.Wishlist, func(id string) bool { return id == productID })
	if len(account.Wishlist) != before {
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save wishlist: %w", err)
		}
	}
	return s.hydrate(ctx, account.Wishlist)
}

func (s *ProfileService) ensureProduct(ctx context.Context, productID string) error {
	_, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

func (s *ProfileService) cartView(ctx context.Context, cart []models.CartItem) (*CartView, error) {
	ids := make([]string, len(cart))
	for i, item := range cart {
		ids[i] = item.ProductID
	}
	products, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: []CartLine{}}
	for i, item := range cart {
		if products[i] == nil {
			continue
		}
		view.Items = append(view.Items, CartLine{Product: products[i], Quantity: item.Quantity})
		view.TotalItems += item.Quantity
		view.TotalAmount += products[i].Amount * float64(item.Quantity)
	}
	return view, nil
}

// hydrate resolves ids to products in order, skipping products that no
// longer exist.
func (s *ProfileService) hydrate(ctx context.Context, ids []string) ([]*models.Product, error) {
	found, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Product, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProfileService) lookup(ctx context.Context, ids []string) ([]*models.Product, error) {
	return lookupProducts(ctx, s.products, s.logger, ids)
}

// lookupProducts fetches ids concurrently; slot i is nil when ids[i] is gone.
func lookupProducts(ctx context.Context, repo repository.ProductRepository, logger *zap.Logger, ids []string) ([]*models.Product, error) {
	out := make([]*models.Product, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := repo.FindByID(gctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				logger.Debug("Skipping missing product", util.String("product_id", id))
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load product %s: %w", id, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
