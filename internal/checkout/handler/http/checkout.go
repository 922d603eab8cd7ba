// Package http exposes the checkout flow over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/httputil"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the checkout endpoints on the router.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/", h.InitiateCheckout)
		r.Get("/{checkoutId}", h.GetCheckout)
		r.Get("/{checkoutId}/shipping-methods", h.ListShippingMethods)
		r.Put("/{checkoutId}/shipping", h.UpdateShipping)
		r.Put("/{checkoutId}/shipping-method", h.SelectShippingMethod)
		r.Put("/{checkoutId}/confirm", h.Confirm)
		r.Post("/{checkoutId}/cancel", h.Cancel)
	})
}

// InitiateCheckoutRequest is the JSON request body for starting a checkout.
type InitiateCheckoutRequest struct {
	CartID string `json:"cart_id" validate:"required"`
}

// UpdateShippingRequest is the JSON request body for the shipping destination.
type UpdateShippingRequest struct {
	FullName    string `json:"full_name"`
	Street      string `json:"street"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phone_number"`
}

// SelectShippingMethodRequest is the JSON request body for picking a method.
type SelectShippingMethodRequest struct {
	ShippingMethodID string `json:"shipping_method_id" validate:"required"`
}

// InitiateCheckout handles POST /api/v1/checkout
// @Summary Start a checkout from a cart
// @Description Snapshots the cart lines into a new checkout session, or resumes the active one.
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body InitiateCheckoutRequest true "Cart to check out"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/checkout [post]
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req InitiateCheckoutRequest
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

	checkout, err := h.service.Initiate(r.Context(), req.CartID, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: checkout})
}

// GetCheckout handles GET /api/v1/checkout/{checkoutId}
// @Summary Get a checkout session
// @Tags checkout
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId} [get]
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	checkout, err := h.service.Get(r.Context(), checkoutID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}

// ListShippingMethods handles GET /api/v1/checkout/{checkoutId}/shipping-methods
// @Summary List delivery methods available for a checkout
// @Tags checkout
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId}/shipping-methods [get]
func (h *CheckoutHandler) ListShippingMethods(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	methods, err := h.service.ListShippingMethods(r.Context(), checkoutID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: methods})
}

// UpdateShipping handles PUT /api/v1/checkout/{checkoutId}/shipping
// @Summary Set the shipping destination
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Param request body UpdateShippingRequest true "Shipping destination"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId}/shipping [put]
func (h *CheckoutHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	checkout, err := h.service.UpdateShipping(r.Context(), checkoutID, domain.ShippingInformation{
		FullName:    req.FullName,
		Street:      req.Street,
		Apartment:   req.Apartment,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}

// SelectShippingMethod handles PUT /api/v1/checkout/{checkoutId}/shipping-method
// @Summary Pick a delivery method
// @Description Selecting a method recomputes the checkout totals.
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Param request body SelectShippingMethodRequest true "Method to select"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId}/shipping-method [put]
func (h *CheckoutHandler) SelectShippingMethod(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SelectShippingMethodRequest
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

	checkout, err := h.service.SelectShippingMethod(r.Context(), checkoutID, req.ShippingMethodID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}

// Confirm handles PUT /api/v1/checkout/{checkoutId}/confirm
// @Summary Confirm the checkout for payment
// @Tags checkout
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId}/confirm [put]
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	checkout, err := h.service.Confirm(r.Context(), checkoutID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}

// Cancel handles POST /api/v1/checkout/{checkoutId}/cancel
// @Summary Cancel a checkout
// @Tags checkout
// @Produce json
// @Param checkoutId path string true "Checkout ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutId}/cancel [post]
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")

	checkout, err := h.service.Cancel(r.Context(), checkoutID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}
