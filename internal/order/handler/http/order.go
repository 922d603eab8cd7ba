// Package http exposes orders, payments, and stored payment methods
// over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/httputil"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the order and payment method endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderId}", h.GetOrder)
		r.Post("/{orderId}/payments", h.ProcessPayment)
		r.Post("/{orderId}/cancel", h.CancelOrder)
	})
	r.Route("/api/v1/payment-methods", func(r chi.Router) {
		r.Get("/", h.ListPaymentMethods)
		r.Post("/", h.AddPaymentMethod)
		r.Delete("/{methodId}", h.RemovePaymentMethod)
	})
}

// CreateOrderRequest is the JSON request body for creating an order.
type CreateOrderRequest struct {
	CheckoutID string `json:"checkout_id" validate:"required"`
}

// ProcessPaymentRequest is the JSON request body for a charge attempt.
type ProcessPaymentRequest struct {
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"required,len=3"`
	PaymentMethodID string  `json:"payment_method_id"`
	CardNumber      string  `json:"card_number"`
	CardHolder      string  `json:"card_holder"`
}

// CancelOrderRequest is the JSON request body for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// AddPaymentMethodRequest is the JSON request body for storing a card.
type AddPaymentMethodRequest struct {
	CardNumber string `json:"card_number" validate:"required,min=12"`
	HolderName string `json:"holder_name"`
	ExpMonth   int    `json:"exp_month" validate:"required,gte=1,lte=12"`
	ExpYear    int    `json:"exp_year" validate:"required,gte=2024"`
	SetDefault bool   `json:"set_default"`
}

// CreateOrder handles POST /api/v1/orders
// @Summary Create an order from a ready-for-payment checkout
// @Description Creating an order twice for the same checkout returns the existing order.
// @Tags orders
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "Checkout to order"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.CheckoutID, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// GetOrder handles GET /api/v1/orders/{orderId}
// @Summary Get an order
// @Tags orders
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/orders/{orderId} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders
// @Summary List the current user's orders
// @Tags orders
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "X-User-ID header is required"},
		})
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// ProcessPayment handles POST /api/v1/orders/{orderId}/payments
// @Summary Pay for an order
// @Description The amount must match the order total exactly. Declined charges can be retried.
// @Tags orders
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param request body ProcessPaymentRequest true "Payment details"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/orders/{orderId}/payments [post]
func (h *OrderHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payment, err := h.service.ProcessPayment(r.Context(), orderID, service.PaymentInput{
		Amount:     money.New(req.Amount, req.Currency),
		MethodID:   req.PaymentMethodID,
		CardNumber: req.CardNumber,
		CardHolder: req.CardHolder,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// CancelOrder handles POST /api/v1/orders/{orderId}/cancel
// @Summary Cancel an order
// @Description Captured payments are refunded. Shipped or delivered orders cannot be cancelled.
// @Tags orders
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param request body CancelOrderRequest false "Cancellation reason"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/orders/{orderId}/cancel [post]
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req CancelOrderRequest
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		// The body is optional; ignore decode errors on an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	order, err := h.service.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ListPaymentMethods handles GET /api/v1/payment-methods
// @Summary List the current user's stored payment methods
// @Tags payment-methods
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/payment-methods [get]
func (h *OrderHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "X-User-ID header is required"},
		})
		return
	}

	methods, err := h.service.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: methods})
}

// AddPaymentMethod handles POST /api/v1/payment-methods
// @Summary Store a payment method
// @Description Only the brand and the last four digits are persisted.
// @Tags payment-methods
// @Accept json
// @Produce json
// @Param request body AddPaymentMethodRequest true "Card to store"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/payment-methods [post]
func (h *OrderHandler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "X-User-ID header is required"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	method, err := h.service.AddPaymentMethod(r.Context(), userID, service.AddPaymentMethodInput{
		CardNumber: req.CardNumber,
		HolderName: req.HolderName,
		ExpMonth:   req.ExpMonth,
		ExpYear:    req.ExpYear,
		SetDefault: req.SetDefault,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: method})
}

// RemovePaymentMethod handles DELETE /api/v1/payment-methods/{methodId}
// @Summary Remove a stored payment method
// @Tags payment-methods
// @Produce json
// @Param methodId path string true "Payment method ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/payment-methods/{methodId} [delete]
func (h *OrderHandler) RemovePaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	methodID := chi.URLParam(r, "methodId")

	if err := h.service.RemovePaymentMethod(r.Context(), userID, methodID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
