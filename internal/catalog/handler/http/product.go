// Package http exposes the catalog over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/repository"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/httputil"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/middleware"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/pagination"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new catalog HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the catalog endpoints on the router. Product
// reads are publicly cacheable for a short window.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.With(middleware.CacheControl(60)).Get("/", h.ListProducts)
		r.With(middleware.CacheControl(60)).Get("/{idOrSlug}", h.GetProduct)
		r.Post("/{id}/variants/resolve", h.ResolveVariants)
	})
}

// ResolveVariantsRequest is the JSON request body for variant resolution.
type ResolveVariantsRequest struct {
	Selection []AttributePair `json:"selection"`
}

// AttributePair is one selected attribute.
type AttributePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListProducts handles GET /api/v1/products
// @Summary List products
// @Description Returns a paginated list of products with their variants
// @Tags products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Param search query string false "Full-text search query"
// @Param brand query string false "Filter by brand"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequestStrict(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}

	filter := repository.ProductFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := r.URL.Query().Get("search"); v != "" {
		filter.Search = &v
	}
	if v := r.URL.Query().Get("brand"); v != "" {
		filter.Brand = &v
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, filter.Page, filter.PerPage))
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
// It accepts both a UUID (product id) and a slug for lookup.
// @Summary Get product by ID or slug
// @Description Returns a product with its variants. Accepts both UUID and URL slug.
// @Tags products
// @Produce json
// @Param idOrSlug path string true "Product UUID or URL slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{idOrSlug} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")
	if idOrSlug == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product id or slug is required"},
		})
		return
	}

	var (
		product *domain.Product
		err     error
	)

	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = h.service.GetProduct(r.Context(), idOrSlug)
	} else {
		product, err = h.service.GetProductBySlug(r.Context(), idOrSlug)
	}

	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ResolveVariants handles POST /api/v1/products/{id}/variants/resolve
// @Summary Resolve a variant selection
// @Description Resolves the shopper's attribute selection against the product's variants: compatible variants, the exact match if any, and per-option availability and price deltas.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product UUID"
// @Param request body ResolveVariantsRequest true "Selected attributes"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{id}/variants/resolve [post]
func (h *ProductHandler) ResolveVariants(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ResolveVariantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	selection := make(domain.AttributeSet, 0, len(req.Selection))
	for _, pair := range req.Selection {
		if pair.Name == "" {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "attribute name must not be empty"},
			})
			return
		}
		selection = selection.With(pair.Name, pair.Value)
	}

	resolution, err := h.service.ResolveVariants(r.Context(), productID, selection)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resolution})
}
