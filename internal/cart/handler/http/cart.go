// Package http exposes the cart over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/httputil"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the cart endpoints on the router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Get("/{cartId}", h.GetCart)
		r.Delete("/{cartId}", h.DeleteCart)
		r.Post("/{cartId}/items", h.AddItem)
		r.Put("/{cartId}/items/{itemId}", h.UpdateItemQuantity)
		r.Delete("/{cartId}/items/{itemId}", h.RemoveItem)
	})
}

// AddItemRequest is the JSON request body for adding an item.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for changing a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CreateCart handles POST /api/v1/carts
// @Summary Create an empty cart
// @Tags carts
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/carts [post]
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")

	cart, err := h.service.CreateCart(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: cart})
}

// GetCart handles GET /api/v1/carts/{cartId}
// @Summary Get a cart
// @Tags carts
// @Produce json
// @Param cartId path string true "Cart ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/carts/{cartId} [get]
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")

	cart, err := h.service.GetCart(r.Context(), cartID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/carts/{cartId}/items
// @Summary Add an item to a cart
// @Description Adds a product variant to the cart. Price and title are captured from the catalog.
// @Tags carts
// @Accept json
// @Produce json
// @Param cartId path string true "Cart ID"
// @Param request body AddItemRequest true "Item to add"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/carts/{cartId}/items [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddItemRequest
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

	cart, err := h.service.AddItem(r.Context(), cartID, service.AddItemInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateItemQuantity handles PUT /api/v1/carts/{cartId}/items/{itemId}
// @Summary Change a line quantity
// @Tags carts
// @Accept json
// @Produce json
// @Param cartId path string true "Cart ID"
// @Param itemId path string true "Line item ID"
// @Param request body UpdateQuantityRequest true "New quantity"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/carts/{cartId}/items/{itemId} [put]
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateQuantityRequest
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

	cart, err := h.service.UpdateItemQuantity(r.Context(), cartID, itemID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/carts/{cartId}/items/{itemId}
// @Summary Remove a line from the cart
// @Description Removing a line that is already gone succeeds, so retries are safe.
// @Tags carts
// @Produce json
// @Param cartId path string true "Cart ID"
// @Param itemId path string true "Line item ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/carts/{cartId}/items/{itemId} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")

	cart, err := h.service.RemoveItem(r.Context(), cartID, itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// DeleteCart handles DELETE /api/v1/carts/{cartId}
// @Summary Delete a cart
// @Tags carts
// @Produce json
// @Param cartId path string true "Cart ID"
// @Success 204 "No Content"
// @Router /api/v1/carts/{cartId} [delete]
func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")

	if err := h.service.DeleteCart(r.Context(), cartID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
