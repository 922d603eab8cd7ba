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

	cartdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/event"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// --- Mock Repository ---

type mockCheckoutRepository struct {
	mock.Mock
}

func (m *mockCheckoutRepository) Create(ctx context.Context, c *domain.Checkout) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCheckoutRepository) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkout), args.Error(1)
}

func (m *mockCheckoutRepository) Update(ctx context.Context, c *domain.Checkout) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCheckoutRepository) GetActiveByCartID(ctx context.Context, cartID string) (*domain.Checkout, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkout), args.Error(1)
}

// --- Mock CartProvider ---

type mockCartProvider struct {
	mock.Mock
}

func (m *mockCartProvider) GetCart(ctx context.Context, cartID string) (*cartdomain.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.Cart), args.Error(1)
}

func (m *mockCartProvider) DeleteCart(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

// --- Helpers ---

func newTestService(repo *mockCheckoutRepository, carts *mockCartProvider) *CheckoutService {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return NewCheckoutService(repo, carts, producer, logger, "ARS")
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

func validShippingInfo() domain.ShippingInformation {
	return domain.ShippingInformation{
		FullName:   "Ada Lovelace",
		Street:     "Av. Paseo Colón 850",
		City:       "Buenos Aires",
		PostalCode: "C1063",
		Country:    "AR",
	}
}

func checkoutAt(status string) *domain.Checkout {
	c := &domain.Checkout{
		ID:       "chk-1",
		CartID:   "cart-1",
		Status:   status,
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

// --- Initiate ---

func TestInitiate_Success(t *testing.T) {
	repo := new(mockCheckoutRepository)
	carts := new(mockCartProvider)
	svc := newTestService(repo, carts)

	carts.On("GetCart", mock.Anything, "cart-1").Return(filledCart(), nil)
	repo.On("GetActiveByCartID", mock.Anything, "cart-1").Return(nil, apperrors.ErrNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.Initiate(context.Background(), "cart-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, checkout.Status)
	require.Len(t, checkout.Items, 1)
	assert.InDelta(t, 217548.10, checkout.Subtotal.Amount, 0.005)
	assert.InDelta(t, 217548.10, checkout.Total.Amount, 0.005)
}

func TestInitiate_MissingCart(t *testing.T) {
	repo := new(mockCheckoutRepository)
	carts := new(mockCartProvider)
	svc := newTestService(repo, carts)

	carts.On("GetCart", mock.Anything, "cart-404").Return(nil, apperrors.NotFound("cart", "cart-404"))

	_, err := svc.Initiate(context.Background(), "cart-404", "")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CART", appErr.Code)
}

func TestInitiate_EmptyCart(t *testing.T) {
	repo := new(mockCheckoutRepository)
	carts := new(mockCartProvider)
	svc := newTestService(repo, carts)

	empty := filledCart()
	empty.Items = nil
	carts.On("GetCart", mock.Anything, "cart-1").Return(empty, nil)

	_, err := svc.Initiate(context.Background(), "cart-1", "")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CART", appErr.Code)
	repo.AssertNotCalled(t, "Create")
}

func TestInitiate_ResumesActiveCheckout(t *testing.T) {
	repo := new(mockCheckoutRepository)
	carts := new(mockCartProvider)
	svc := newTestService(repo, carts)

	existing := checkoutAt(domain.StatusShippingInfoProvided)
	carts.On("GetCart", mock.Anything, "cart-1").Return(filledCart(), nil)
	repo.On("GetActiveByCartID", mock.Anything, "cart-1").Return(existing, nil)

	checkout, err := svc.Initiate(context.Background(), "cart-1", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, checkout.ID)
	repo.AssertNotCalled(t, "Create")
}

// --- UpdateShipping ---

func TestUpdateShipping_AdvancesStatus(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusPending), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.UpdateShipping(context.Background(), "chk-1", validShippingInfo())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShippingInfoProvided, checkout.Status)
	require.NotNil(t, checkout.ShippingInfo)
	assert.Equal(t, "Ada Lovelace", checkout.ShippingInfo.FullName)
}

func TestUpdateShipping_MissingFields(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	info := validShippingInfo()
	info.PostalCode = ""

	_, err := svc.UpdateShipping(context.Background(), "chk-1", info)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "GetByID")
}

func TestUpdateShipping_DoesNotRegressStatus(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	later := checkoutAt(domain.StatusShippingMethodSelected)
	later.ShippingInfo = &domain.ShippingInformation{FullName: "Old Name", Street: "x", City: "y", PostalCode: "z", Country: "AR"}
	repo.On("GetByID", mock.Anything, "chk-1").Return(later, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.UpdateShipping(context.Background(), "chk-1", validShippingInfo())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShippingMethodSelected, checkout.Status)
	assert.Equal(t, "Ada Lovelace", checkout.ShippingInfo.FullName)
}

func TestUpdateShipping_CancelledRejected(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusCancelled), nil)

	_, err := svc.UpdateShipping(context.Background(), "chk-1", validShippingInfo())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// --- SelectShippingMethod ---

func TestSelectShippingMethod_RecomputesTotals(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	c := checkoutAt(domain.StatusShippingInfoProvided)
	info := validShippingInfo()
	c.ShippingInfo = &info
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.SelectShippingMethod(context.Background(), "chk-1", domain.ShippingMethodExpress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShippingMethodSelected, checkout.Status)
	assert.InDelta(t, 19999, checkout.ShippingCost.Amount, 0.001)
	assert.InDelta(t, 237547.10, checkout.Total.Amount, 0.005)
}

func TestSelectShippingMethod_Unknown(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	c := checkoutAt(domain.StatusShippingInfoProvided)
	info := validShippingInfo()
	c.ShippingInfo = &info
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)

	_, err := svc.SelectShippingMethod(context.Background(), "chk-1", "drone")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNKNOWN_SHIPPING_METHOD", appErr.Code)
	repo.AssertNotCalled(t, "Update")
}

func TestSelectShippingMethod_RequiresShippingInfo(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusPending), nil)

	_, err := svc.SelectShippingMethod(context.Background(), "chk-1", domain.ShippingMethodStandard)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// --- Confirm ---

func TestConfirm_AdvancesToReadyForPayment(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	c := checkoutAt(domain.StatusShippingMethodSelected)
	methods := domain.DefaultShippingMethods("ARS")
	c.ShippingMethod = domain.FindShippingMethod(methods, domain.ShippingMethodStandard)
	c.RecomputeTotals()
	repo.On("GetByID", mock.Anything, "chk-1").Return(c, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.Confirm(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForPayment, checkout.Status)
}

func TestConfirm_RequiresShippingMethod(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusShippingInfoProvided), nil)

	_, err := svc.Confirm(context.Background(), "chk-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// --- Cancel ---

func TestCancel_NonTerminal(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusReadyForPayment), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

	checkout, err := svc.Cancel(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, checkout.Status)
}

func TestCancel_Completed(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusCompleted), nil)

	_, err := svc.Cancel(context.Background(), "chk-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// --- Complete ---

func TestComplete_DeletesCartAndRecordsOrder(t *testing.T) {
	repo := new(mockCheckoutRepository)
	carts := new(mockCartProvider)
	svc := newTestService(repo, carts)

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusReadyForPayment), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)
	carts.On("DeleteCart", mock.Anything, "cart-1").Return(nil)

	checkout, err := svc.Complete(context.Background(), "chk-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, checkout.Status)
	assert.Equal(t, "order-1", checkout.OrderID)
	carts.AssertExpectations(t)
}

func TestComplete_RequiresReadyForPayment(t *testing.T) {
	repo := new(mockCheckoutRepository)
	svc := newTestService(repo, new(mockCartProvider))

	repo.On("GetByID", mock.Anything, "chk-1").Return(checkoutAt(domain.StatusShippingMethodSelected), nil)

	_, err := svc.Complete(context.Background(), "chk-1", "order-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
