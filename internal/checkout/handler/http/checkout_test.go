package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/event"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/service"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// =============================================================================
// Mocks
// =============================================================================

type mockCheckoutRepo struct {
	mock.Mock
}

func (m *mockCheckoutRepo) Create(ctx context.Context, c *domain.Checkout) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCheckoutRepo) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkout), args.Error(1)
}

func (m *mockCheckoutRepo) Update(ctx context.Context, c *domain.Checkout) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCheckoutRepo) GetActiveByCartID(ctx context.Context, cartID string) (*domain.Checkout, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkout), args.Error(1)
}

type mockCarts struct {
	mock.Mock
}

func (m *mockCarts) GetCart(ctx context.Context, cartID string) (*cartdomain.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.Cart), args.Error(1)
}

func (m *mockCarts) DeleteCart(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

// =============================================================================
// Helpers
// =============================================================================

func newTestRouter(repo *mockCheckoutRepo, carts *mockCarts) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	svc := service.NewCheckoutService(repo, carts, producer, logger, "ARS")
	handler := NewCheckoutHandler(svc, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func filledCart() *cartdomain.Cart {
	now := time.Now().UTC()
	return &cartdomain.Cart{
		ID:       "cart-1",
		Currency: "ARS",
		Items: []cartdomain.CartItem{
			{
				ID:        "item-1",
				ProductID: "prod-termo",
				VariantID: "var-negro",
				Title:     "Termo Acero Inoxidable 1.4 Lts",
				UnitPrice: money.New(108774.05, "ARS"),
				Quantity:  2,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func pendingCheckout() *domain.Checkout {
	c := &domain.Checkout{
		ID:       "chk-1",
		CartID:   "cart-1",
		Status:   domain.StatusPending,
		Currency: "ARS",
		Items: []domain.CheckoutItem{
			{
				ProductID: "prod-termo",
				VariantID: "var-negro",
				UnitPrice: money.New(108774.05, "ARS"),
				Quantity:  2,
			},
		},
	}
	c.RecomputeTotals()
	return c
}

// =============================================================================
// Tests
// =============================================================================

func TestInitiateCheckout_Success(t *testing.T) {
	repo := new(mockCheckoutRepo)
	carts := new(mockCarts)
	carts.On("GetCart", mock.Anything, "cart-1").Return(filledCart(), nil)
	repo.On("GetActiveByCartID", mock.Anything, "cart-1").Return(nil, apperrors.ErrNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	router := newTestRouter(repo, carts)
	body := []byte(`{"cart_id":"cart-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Checkout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, domain.StatusPending, resp.Data.Status)
	assert.InDelta(t, 217548.10, resp.Data.Subtotal.Amount, 0.005)
}

func TestInitiateCheckout_MissingCart(t *testing.T) {
	repo := new(mockCheckoutRepo)
	carts := new(mockCarts)
	carts.On("GetCart", mock.Anything, "cart-404").Return(nil, apperrors.NotFound("cart", "cart-404"))

	router := newTestRouter(repo, carts)
	body := []byte(`{"cart_id":"cart-404"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CART")
}

func TestInitiateCheckout_MissingCartID(t *testing.T) {
	router := newTestRouter(new(mockCheckoutRepo), new(mockCarts))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestGetCheckout_NotFound(t *testing.T) {
	repo := new(mockCheckoutRepo)
	repo.On("GetByID", mock.Anything, "chk-404").Return(nil, apperrors.ErrNotFound)

	router := newTestRouter(repo, new(mockCarts))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/chk-404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListShippingMethods(t *testing.T) {
	repo := new(mockCheckoutRepo)
	repo.On("GetByID", mock.Anything, "chk-1").Return(pendingCheckout(), nil)

	router := newTestRouter(repo, new(mockCarts))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/chk-1/shipping-methods", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []domain.ShippingMethod `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, domain.ShippingMethodStandard, resp.Data[0].ID)
}

func TestUpdateShipping_Success(t *testing.T) {
	repo := new(mockCheckoutRepo)
	repo.On("GetByID", mock.Anything, "chk-1").Return(pendingCheckout(), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	router := newTestRouter(repo, new(mockCarts))
	body := []byte(`{
		"full_name": "Ada Lovelace",
		"street": "Av. Paseo Colón 850",
		"city": "Buenos Aires",
		"postal_code": "C1063",
		"country": "AR"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/chk-1/shipping", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Checkout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusShippingInfoProvided, resp.Data.Status)
}

func TestUpdateShipping_MissingFields(t *testing.T) {
	router := newTestRouter(new(mockCheckoutRepo), new(mockCarts))

	body := []byte(`{"full_name": "Ada Lovelace"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/chk-1/shipping", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required shipping fields")
}

func TestSelectShippingMethod_Unknown(t *testing.T) {
	repo := new(mockCheckoutRepo)
	c := pendingCheckout()
	c.Status = domain.StatusShippingInfoProvided
	c.ShippingInfo = &domain.ShippingInformation{
		FullName: "Ada Lovelace", Street: "x", City: "y", PostalCode: "z", Country: "AR",
	}
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)

	router := newTestRouter(repo, new(mockCarts))
	body := []byte(`{"shipping_method_id":"drone"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/chk-1/shipping-method", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_SHIPPING_METHOD")
}

func TestSelectShippingMethod_Success(t *testing.T) {
	repo := new(mockCheckoutRepo)
	c := pendingCheckout()
	c.Status = domain.StatusShippingInfoProvided
	c.ShippingInfo = &domain.ShippingInformation{
		FullName: "Ada Lovelace", Street: "x", City: "y", PostalCode: "z", Country: "AR",
	}
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	router := newTestRouter(repo, new(mockCarts))
	body := []byte(`{"shipping_method_id":"express"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/chk-1/shipping-method", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Checkout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusShippingMethodSelected, resp.Data.Status)
	assert.InDelta(t, 237547.10, resp.Data.Total.Amount, 0.005)
}

func TestConfirm_WithoutMethod(t *testing.T) {
	repo := new(mockCheckoutRepo)
	c := pendingCheckout()
	c.Status = domain.StatusShippingInfoProvided
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)

	router := newTestRouter(repo, new(mockCarts))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/chk-1/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelCheckout(t *testing.T) {
	repo := new(mockCheckoutRepo)
	repo.On("GetByID", mock.Anything, "chk-1").Return(pendingCheckout(), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	router := newTestRouter(repo, new(mockCarts))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/chk-1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Checkout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusCancelled, resp.Data.Status)
}
