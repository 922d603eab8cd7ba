package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/event"
	catalogdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// --- Mock Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

// --- Mock Catalog ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*catalogdomain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockCartRepository, catalog *mockCatalog) *CartService {
	logger := newTestLogger()
	// Kafka producer pointed at nothing; publish failures are logged, not returned.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return NewCartService(repo, catalog, producer, logger, "ARS", 24*time.Hour)
}

func thermosProduct() *catalogdomain.Product {
	return &catalogdomain.Product{
		ID:       "prod-termo",
		Title:    "Termo Acero Inoxidable 1.4 Lts",
		Currency: "ARS",
		Variants: []catalogdomain.Variant{
			{
				ID:          "var-negro",
				SKU:         "TERMO-LUMI-14-NEGRO",
				Attributes:  catalogdomain.AttributeSet{{Name: "color", Value: "Negro"}},
				Price:       money.New(959999, "ARS"),
				Stock:       4,
				IsAvailable: true,
			},
		},
	}
}

func emptyCart() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        "cart-1",
		Items:     []domain.CartItem{},
		Currency:  "ARS",
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// --- CreateCart ---

func TestCreateCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.CreateCart(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "ARS", cart.Currency)
	repo.AssertExpectations(t)
}

// --- AddItem ---

func TestAddItem_CapturesCatalogPrice(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(thermosProduct(), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), int64(0)).Return(nil)

	cart, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  2,
	})

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.InDelta(t, 959999, cart.Items[0].UnitPrice.Amount, 0.001)
	assert.Equal(t, "Termo Acero Inoxidable 1.4 Lts", cart.Items[0].Title)
	assert.Equal(t, "color: Negro", cart.Items[0].VariantLabel)
	assert.NotEmpty(t, cart.Items[0].ID)
	assert.InDelta(t, 1919998, cart.TotalAmount().Amount, 0.001)
	assert.Equal(t, 2, cart.ItemCount())
	assert.Equal(t, int64(1), cart.Version)
}

func TestAddItem_MergesSameVariant(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	existing := emptyCart()
	existing.Version = 1
	existing.Items = []domain.CartItem{{
		ID:        "item-1",
		ProductID: "prod-termo",
		VariantID: "var-negro",
		UnitPrice: money.New(950000, "ARS"),
		Quantity:  1,
	}}

	repo.On("Get", mock.Anything, "cart-1").Return(existing, nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(thermosProduct(), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), int64(1)).Return(nil)

	cart, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  2,
	})

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	// price refreshed from the catalog
	assert.InDelta(t, 959999, cart.Items[0].UnitPrice.Amount, 0.001)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(thermosProduct(), nil)

	_, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  5,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNotCalled(t, "SaveIfVersion")
}

func TestAddItem_UnavailableVariant(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	product := thermosProduct()
	product.Variants[0].IsAvailable = false

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(product, nil)

	_, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  1,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNotCalled(t, "SaveIfVersion")
}

func TestAddItem_UnknownVariant(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(thermosProduct(), nil)

	_, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-azul",
		Quantity:  1,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddItem_CartMissing(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	repo.On("Get", mock.Anything, "cart-404").Return(nil, apperrors.NotFound("cart", "cart-404"))

	_, err := svc.AddItem(context.Background(), "cart-404", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  1,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	catalog.AssertNotCalled(t, "GetProduct")
}

func TestAddItem_ConcurrentConflict(t *testing.T) {
	repo := new(mockCartRepository)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog)

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)
	catalog.On("GetProduct", mock.Anything, "prod-termo").Return(thermosProduct(), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), int64(0)).
		Return(apperrors.Conflict("cart was modified concurrently, please retry"))

	_, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  1,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := newTestService(new(mockCartRepository), new(mockCatalog))

	_, err := svc.AddItem(context.Background(), "cart-1", AddItemInput{
		ProductID: "prod-termo",
		VariantID: "var-negro",
		Quantity:  0,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- UpdateItemQuantity ---

func TestUpdateItemQuantity_Success(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	cart := emptyCart()
	cart.Version = 2
	cart.Items = []domain.CartItem{{
		ID:        "item-1",
		ProductID: "prod-termo",
		VariantID: "var-negro",
		UnitPrice: money.New(959999, "ARS"),
		Quantity:  2,
	}}

	repo.On("Get", mock.Anything, "cart-1").Return(cart, nil)
	repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), int64(2)).Return(nil)

	got, err := svc.UpdateItemQuantity(context.Background(), "cart-1", "item-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.Equal(t, int64(3), got.Version)
}

func TestUpdateItemQuantity_UnknownItem(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)

	_, err := svc.UpdateItemQuantity(context.Background(), "cart-1", "item-404", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "SaveIfVersion")
}

func TestUpdateItemQuantity_RejectsZero(t *testing.T) {
	svc := newTestService(new(mockCartRepository), new(mockCatalog))

	_, err := svc.UpdateItemQuantity(context.Background(), "cart-1", "item-1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- RemoveItem ---

func TestRemoveItem_Success(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	cart := emptyCart()
	cart.Version = 1
	cart.Items = []domain.CartItem{{
		ID:        "item-1",
		ProductID: "prod-termo",
		VariantID: "var-negro",
		UnitPrice: money.New(959999, "ARS"),
		Quantity:  2,
	}}

	repo.On("Get", mock.Anything, "cart-1").Return(cart, nil)
	repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), int64(1)).Return(nil)

	got, err := svc.RemoveItem(context.Background(), "cart-1", "item-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.InDelta(t, 0, got.TotalAmount().Amount, 0.001)
	assert.Equal(t, 0, got.ItemCount())
}

func TestRemoveItem_UnknownItemIsIdempotent(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	repo.On("Get", mock.Anything, "cart-1").Return(emptyCart(), nil)

	got, err := svc.RemoveItem(context.Background(), "cart-1", "item-404")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	repo.AssertNotCalled(t, "SaveIfVersion")
}

// --- DeleteCart ---

func TestDeleteCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockCatalog))

	repo.On("Delete", mock.Anything, "cart-1").Return(nil)

	err := svc.DeleteCart(context.Background(), "cart-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
