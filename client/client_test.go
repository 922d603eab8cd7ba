package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStorefront is an in-memory stand-in for the storefront API,
// implementing just enough of the cart, checkout, and order endpoints
// for the SDK flows.
type fakeStorefront struct {
	mu       sync.Mutex
	requests []string

	cart     *Cart
	checkout *Checkout
	order    *Order

	failAddItem bool
}

var fakePrices = map[string]money.Money{
	"v1": money.New(959999.00, "ARS"),
	"v2": money.New(112999.99, "ARS"),
}

var fakeShippingCosts = map[string]money.Money{
	"standard": money.New(8999.00, "ARS"),
	"express":  money.New(19999.00, "ARS"),
	"pickup":   money.Zero("ARS"),
}

func newFakeStorefront(t *testing.T) (*fakeStorefront, *Client) {
	t.Helper()

	f := &fakeStorefront{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, req.Method+" "+req.URL.Path)
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/api/v1/carts", f.createCart)
	r.Get("/api/v1/carts/{cartId}", f.getCart)
	r.Post("/api/v1/carts/{cartId}/items", f.addItem)
	r.Put("/api/v1/carts/{cartId}/items/{itemId}", f.updateItem)
	r.Delete("/api/v1/carts/{cartId}/items/{itemId}", f.removeItem)

	r.Post("/api/v1/checkout", f.initiateCheckout)
	r.Put("/api/v1/checkout/{checkoutId}/shipping", f.updateShipping)
	r.Get("/api/v1/checkout/{checkoutId}/shipping-methods", f.listShippingMethods)
	r.Put("/api/v1/checkout/{checkoutId}/shipping-method", f.selectShippingMethod)
	r.Put("/api/v1/checkout/{checkoutId}/confirm", f.confirmCheckout)
	r.Post("/api/v1/checkout/{checkoutId}/cancel", f.cancelCheckout)

	r.Post("/api/v1/orders", f.createOrder)
	r.Get("/api/v1/orders/{orderId}", f.getOrder)
	r.Post("/api/v1/orders/{orderId}/payments", f.processPayment)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cl, err := New(Config{
		BaseURL: srv.URL,
		UserID:  "user-1",
		Logger:  discardLogger(),
	})
	require.NoError(t, err)

	return f, cl
}

func (f *fakeStorefront) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeFakeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (f *fakeStorefront) createCart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	f.cart = &Cart{
		ID:        "cart-1",
		Items:     []CartItem{},
		Currency:  "ARS",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(720 * time.Hour),
	}
	writeData(w, http.StatusCreated, f.cart)
}

func (f *fakeStorefront) getCart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cart == nil || f.cart.ID != chi.URLParam(r, "cartId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "cart not found")
		return
	}
	writeData(w, http.StatusOK, f.cart)
}

func (f *fakeStorefront) addItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAddItem {
		writeFakeError(w, http.StatusConflict, "OUT_OF_STOCK", "product is out of stock")
		return
	}
	if f.cart == nil || f.cart.ID != chi.URLParam(r, "cartId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "cart not found")
		return
	}

	var req addItemRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	price, ok := fakePrices[req.VariantID]
	if !ok {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "variant not found")
		return
	}

	merged := false
	for i := range f.cart.Items {
		if f.cart.Items[i].ProductID == req.ProductID && f.cart.Items[i].VariantID == req.VariantID {
			f.cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		f.cart.Items = append(f.cart.Items, CartItem{
			ID:        "item-" + req.VariantID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Title:     "Termo 1.4L acero inoxidable",
			SKU:       "SKU-" + req.VariantID,
			UnitPrice: price,
			Quantity:  req.Quantity,
		})
	}
	f.cart.Version++
	writeData(w, http.StatusOK, f.cart)
}

func (f *fakeStorefront) updateItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cart == nil || f.cart.ID != chi.URLParam(r, "cartId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "cart not found")
		return
	}

	var req updateQuantityRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	itemID := chi.URLParam(r, "itemId")
	for i := range f.cart.Items {
		if f.cart.Items[i].ID == itemID {
			f.cart.Items[i].Quantity = req.Quantity
			f.cart.Version++
			writeData(w, http.StatusOK, f.cart)
			return
		}
	}
	writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "item not found")
}

func (f *fakeStorefront) removeItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cart == nil || f.cart.ID != chi.URLParam(r, "cartId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "cart not found")
		return
	}

	itemID := chi.URLParam(r, "itemId")
	for i := range f.cart.Items {
		if f.cart.Items[i].ID == itemID {
			f.cart.Items = append(f.cart.Items[:i], f.cart.Items[i+1:]...)
			f.cart.Version++
			break
		}
	}
	writeData(w, http.StatusOK, f.cart)
}

func (f *fakeStorefront) initiateCheckout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req initiateCheckoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if f.cart == nil || f.cart.ID != req.CartID || len(f.cart.Items) == 0 {
		writeFakeError(w, http.StatusBadRequest, "INVALID_CART", "cart is missing or empty")
		return
	}

	items := make([]CheckoutItem, len(f.cart.Items))
	for i, line := range f.cart.Items {
		items[i] = CheckoutItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Title:     line.Title,
			SKU:       line.SKU,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
	}

	subtotal := f.cart.TotalAmount()
	now := time.Now().UTC()
	f.checkout = &Checkout{
		ID:           "chk-1",
		CartID:       f.cart.ID,
		UserID:       r.Header.Get("X-User-ID"),
		Status:       "pending",
		Items:        items,
		Subtotal:     subtotal,
		ShippingCost: money.Zero("ARS"),
		Total:        subtotal,
		Currency:     "ARS",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	writeData(w, http.StatusCreated, f.checkout)
}

func (f *fakeStorefront) checkoutByID(w http.ResponseWriter, r *http.Request) *Checkout {
	if f.checkout == nil || f.checkout.ID != chi.URLParam(r, "checkoutId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "checkout not found")
		return nil
	}
	return f.checkout
}

func (f *fakeStorefront) updateShipping(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.checkoutByID(w, r)
	if c == nil {
		return
	}

	var info ShippingInformation
	_ = json.NewDecoder(r.Body).Decode(&info)

	c.ShippingInfo = &info
	if c.Status == "pending" {
		c.Status = "shipping_info_provided"
	}
	writeData(w, http.StatusOK, c)
}

func (f *fakeStorefront) listShippingMethods(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.checkoutByID(w, r) == nil {
		return
	}
	writeData(w, http.StatusOK, []ShippingMethod{
		{ID: "standard", Name: "Envío estándar", Price: fakeShippingCosts["standard"], EstimatedDeliveryDays: 5},
		{ID: "express", Name: "Envío express", Price: fakeShippingCosts["express"], EstimatedDeliveryDays: 2},
		{ID: "pickup", Name: "Retiro en sucursal", Price: fakeShippingCosts["pickup"], EstimatedDeliveryDays: 3},
	})
}

func (f *fakeStorefront) selectShippingMethod(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.checkoutByID(w, r)
	if c == nil {
		return
	}

	var req selectShippingMethodRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	cost, ok := fakeShippingCosts[req.ShippingMethodID]
	if !ok {
		writeFakeError(w, http.StatusBadRequest, "UNKNOWN_SHIPPING_METHOD", "shipping method is not offered")
		return
	}

	c.ShippingMethod = &ShippingMethod{ID: req.ShippingMethodID, Price: cost}
	c.ShippingCost = cost
	if total, err := c.Subtotal.Add(cost); err == nil {
		c.Total = total
	}
	if c.Status == "pending" || c.Status == "shipping_info_provided" {
		c.Status = "shipping_method_selected"
	}
	writeData(w, http.StatusOK, c)
}

func (f *fakeStorefront) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.checkoutByID(w, r)
	if c == nil {
		return
	}
	c.Status = "ready_for_payment"
	writeData(w, http.StatusOK, c)
}

func (f *fakeStorefront) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.checkoutByID(w, r)
	if c == nil {
		return
	}
	c.Status = "cancelled"
	writeData(w, http.StatusOK, c)
}

func (f *fakeStorefront) createOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req createOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if f.checkout == nil || f.checkout.ID != req.CheckoutID {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "checkout not found")
		return
	}
	if f.order != nil && f.order.CheckoutID == req.CheckoutID {
		writeData(w, http.StatusCreated, f.order)
		return
	}
	if f.checkout.Status != "ready_for_payment" {
		writeFakeError(w, http.StatusConflict, "CONFLICT", "checkout is not ready for payment")
		return
	}

	now := time.Now().UTC()
	f.order = &Order{
		ID:            "order-1",
		CheckoutID:    f.checkout.ID,
		UserID:        f.checkout.UserID,
		Status:        "pending",
		PaymentStatus: "pending",
		Subtotal:      f.checkout.Subtotal,
		ShippingCost:  f.checkout.ShippingCost,
		Total:         f.checkout.Total,
		Currency:      f.checkout.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	writeData(w, http.StatusCreated, f.order)
}

func (f *fakeStorefront) getOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.order == nil || f.order.ID != chi.URLParam(r, "orderId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	writeData(w, http.StatusOK, f.order)
}

func (f *fakeStorefront) processPayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.order == nil || f.order.ID != chi.URLParam(r, "orderId") {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}

	var req processPaymentRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if !money.New(req.Amount, req.Currency).Equal(f.order.Total) {
		writeFakeError(w, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", "payment amount does not match order total")
		return
	}
	if strings.HasSuffix(req.CardNumber, "0002") {
		writeFakeError(w, http.StatusUnprocessableEntity, "PAYMENT_FAILED", "card declined")
		return
	}

	f.order.Status = "confirmed"
	f.order.PaymentStatus = "captured"
	f.order.TrackingNumber = "TRK-TEST1234"
	f.checkout.Status = "completed"
	f.cart = nil

	writeData(w, http.StatusOK, &Payment{
		ID:        "pay-1",
		OrderID:   f.order.ID,
		Status:    "captured",
		Amount:    f.order.Total,
		Reference: "mock_pay_test",
		CreatedAt: time.Now().UTC(),
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(SessionKeyCartID)
	assert.False(t, ok)

	store.Set(SessionKeyCartID, "cart-1")
	v, ok := store.Get(SessionKeyCartID)
	require.True(t, ok)
	assert.Equal(t, "cart-1", v)

	store.Delete(SessionKeyCartID)
	_, ok = store.Get(SessionKeyCartID)
	assert.False(t, ok)

	// Deleting twice is fine.
	store.Delete(SessionKeyCartID)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestClientSendsUserHeaderAndDecodesEnvelope(t *testing.T) {
	var gotUserID, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get("X-User-ID")
		gotAccept = r.Header.Get("Accept")
		writeData(w, http.StatusOK, map[string]string{"id": "abc"})
	}))
	defer srv.Close()

	cl, err := New(Config{BaseURL: srv.URL + "/", UserID: "user-7", Logger: discardLogger()})
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, cl.do(context.Background(), http.MethodGet, "/anything", nil, &out))

	assert.Equal(t, "abc", out.ID)
	assert.Equal(t, "user-7", gotUserID)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientTranslatesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "cart not found")
	}))
	defer srv.Close()

	cl, err := New(Config{BaseURL: srv.URL, Logger: discardLogger()})
	require.NoError(t, err)

	err = cl.do(context.Background(), http.MethodGet, "/api/v1/carts/nope", nil, &Cart{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
