package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository/memory"
)

type profileFixture struct {
	svc      *ProfileService
	accounts *memory.AccountRepository
	products *memory.ProductRepository
	account  *models.Account
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		accounts: memory.NewAccountRepository(),
		products: memory.NewProductRepository(),
	}
	f.svc = NewProfileService(f.accounts, f.products, zap.NewNop())

	f.account = &models.Account{
		ID:              "acct-1",
		Name:            "Asha",
		Email:           "asha@example.com",
		Status:          models.StatusActive,
		IsEmailVerified: true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), f.account))

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range []*models.Product{
		{ID: "mug", Name: "Photo Mug", Amount: 299, Category: models.CategoryCups, CreatedAt: created},
		{ID: "lamp", Name: "Moon Lamp", Amount: 1199, Category: models.CategoryLamps, CreatedAt: created},
	} {
		require.NoError(t, f.products.Create(context.Background(), p))
	}
	return f
}

func homeAddress(street string) AddressInput {
	return AddressInput{Street: street, City: "Pune", State: "MH", ZipCode: "411001"}
}

func defaults(list []models.Address) int {
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddAddressDefaultsAndLimit(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	list, err := f.svc.AddAddress(ctx, f.account.ID, homeAddress("1 MG Road"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, models.AddressHome, list[0].Type)
	assert.Equal(t, models.DefaultCountry, list[0].Country)
	assert.NotEmpty(t, list[0].ID)

	second := homeAddress("2 FC Road")
	second.Type = models.AddressWork
	second.IsDefault = true
	list, err = f.svc.AddAddress(ctx, f.account.ID, second)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	_, err = f.svc.AddAddress(ctx, f.account.ID, homeAddress("3 JM Road"))
	assert.Equal(t, "Only Add Upto 2 address", validationMessage(t, err))

	stored, err := f.svc.Profile(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Addresses, 2)
}

func TestAddAddressRequiresFields(t *testing.T) {
	f := newProfileFixture(t)
	_, err := f.svc.AddAddress(context.Background(), f.account.ID, AddressInput{Street: "1 MG Road", City: "Pune"})
	assert.Equal(t, "All required address fields must be provided.", validationMessage(t, err))
}

func TestUpdateAddressKeepsExactlyOneDefault(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	list, err := f.svc.AddAddress(ctx, f.account.ID, homeAddress("1 MG Road"))
	require.NoError(t, err)
	list, err = f.svc.AddAddress(ctx, f.account.ID, homeAddress("2 FC Road"))
	require.NoError(t, err)
	first, second := list[0].ID, list[1].ID

	// Editing the default without the flag leaves it default.
	list, err = f.svc.UpdateAddress(ctx, f.account.ID, first, homeAddress("1A MG Road"))
	require.NoError(t, err)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, "1A MG Road", list[0].Street)
	assert.Equal(t, 1, defaults(list))

	promote := homeAddress("2 FC Road")
	promote.IsDefault = true
	list, err = f.svc.UpdateAddress(ctx, f.account.ID, second, promote)
	require.NoError(t, err)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)
	assert.Equal(t, 1, defaults(list))

	_, err = f.svc.UpdateAddress(ctx, f.account.ID, "missing", homeAddress("x"))
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestUpdateAddressKeepsStoredCountry(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	abroad := homeAddress("5 Orchard Rd")
	abroad.Country = "Singapore"
	list, err := f.svc.AddAddress(ctx, f.account.ID, abroad)
	require.NoError(t, err)

	list, err = f.svc.UpdateAddress(ctx, f.account.ID, list[0].ID, homeAddress("6 Orchard Rd"))
	require.NoError(t, err)
	assert.Equal(t, "6 Orchard Rd", list[0].Street)
	assert.Equal(t, "Singapore", list[0].Country)

	moved := homeAddress("6 Orchard Rd")
	moved.Country = "Malaysia"
	list, err = f.svc.UpdateAddress(ctx, f.account.ID, list[0].ID, moved)
	require.NoError(t, err)
	assert.Equal(t, "Malaysia", list[0].Country)
}

func TestDeleteDefaultAddressPromotesRemaining(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	list, err := f.svc.AddAddress(ctx, f.account.ID, homeAddress("1 MG Road"))
	require.NoError(t, err)
	list, err = f.svc.AddAddress(ctx, f.account.ID, homeAddress("2 FC Road"))
	require.NoError(t, err)

	list, err = f.svc.DeleteAddress(ctx, f.account.ID, list[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2 FC Road", list[0].Street)
	assert.True(t, list[0].IsDefault)

	list, err = f.svc.DeleteAddress(ctx, f.account.ID, list[0].ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = f.svc.DeleteAddress(ctx, f.account.ID, "missing")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCartAccumulatesAndHydrates(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	view, err := f.svc.AddToCart(ctx, f.account.ID, "mug", nil)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)

	three := 3
	view, err = f.svc.AddToCart(ctx, f.account.ID, "mug", &three)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)

	view, err = f.svc.AddToCart(ctx, f.account.ID, "lamp", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, view.TotalItems)
	assert.InDelta(t, 4*299+1199, view.TotalAmount, 0.001)

	zero := 0
	_, err = f.svc.AddToCart(ctx, f.account.ID, "mug", &zero)
	assert.Equal(t, "Quantity must be at least 1", validationMessage(t, err))

	_, err = f.svc.AddToCart(ctx, f.account.ID, "ghost", nil)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// A product deleted after being carted drops out of the view.
	require.NoError(t, f.products.Delete(ctx, "lamp"))
	view, err = f.svc.Cart(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "mug", view.Items[0].Product.ID)

	view, err = f.svc.RemoveFromCart(ctx, f.account.ID, "mug")
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.svc.RemoveFromCart(ctx, f.account.ID, "mug")
	assert.NoError(t, err)
}

func TestWishlistIsASet(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToWishlist(ctx, f.account.ID, "lamp")
	require.NoError(t, err)
	items, err := f.svc.AddToWishlist(ctx, f.account.ID, "lamp")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Moon Lamp", items[0].Name)

	_, err = f.svc.AddToWishlist(ctx, f.account.ID, "ghost")
	assert.ErrorIs(t, err, ErrProductNotFound)

	items, err = f.svc.RemoveFromWishlist(ctx, f.account.ID, "lamp")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCanAccess(t *testing.T) {
	owner := &models.Account{ID: "a"}
	admin := &models.Account{ID: "b", IsAdmin: true}

	assert.NoError(t, CanAccess(owner, "a"))
	assert.ErrorIs(t, CanAccess(owner, "b"), ErrPermissionDenied)
	assert.NoError(t, CanAccess(admin, "a"))
	assert.ErrorIs(t, CanAccess(nil, "a"), ErrUnauthorized)
}
