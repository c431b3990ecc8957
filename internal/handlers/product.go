package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minimart/apiserver/internal/services"
	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

const (
	maxImageMemory = 8 << 20
	maxImageBytes  = 10 << 20
	formFieldImage = "image"
)

// ProductHandler provides HTTP handlers for the product catalog.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs a handler with the provided service.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// AdminProductRouter registers admin-only catalog routes. Both
// middlewares are applied to every route.
func AdminProductRouter(r chi.Router, handler *ProductHandler, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware, adminMiddleware)
	r.Post("/", handler.CreateProduct)
	r.Get("/", handler.ListProducts)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Put("/", handler.UpdateProduct)
		r.Delete("/", handler.DeleteProduct)
		r.Post("/image", handler.UploadProductImage)
	})
}

// ProductRouter registers public read-only catalog routes.
func ProductRouter(r chi.Router, handler *ProductHandler) {
	r.Get("/", handler.ListProducts)
	r.Get("/search", handler.SearchProducts)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Get("/image", handler.GetProductImage)
	})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Product name is required")
		return
	}

	created, err := h.catalog.Create(r.Context(), types.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := types.ProductFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		SortBy:   strings.TrimSpace(r.URL.Query().Get("sort_by")),
		Offset:   offset,
		Limit:    pageSize,
	}

	filter.MinPrice, err = parseOptionalFloat(r.URL.Query().Get("min_price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_price")
		return
	}
	filter.MaxPrice, err = parseOptionalFloat(r.URL.Query().Get("max_price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid max_price")
		return
	}

	products, total, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Products:   products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	products, total, err := h.catalog.Search(r.Context(), keyword, offset, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to search products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Products:   products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.catalog.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
}

// UploadProductImage stores the uploaded file in object storage and
// points the product's image reference at it.
func (h *ProductHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "uploaded file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	updated, err := h.catalog.AttachImage(r.Context(), id, header.Filename, file, header.Size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, services.ErrStorageDisabled):
			writeError(w, http.StatusBadRequest, "image storage is not configured")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to upload image")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// GetProductImage streams the product's stored image.
func (h *ProductHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.catalog.OpenImage(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product image not found")
		case errors.Is(err, services.ErrStorageDisabled):
			writeError(w, http.StatusNotFound, "Product image not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to fetch image")
		}
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, reader)
}

// ProductUpsertRequest is the JSON payload for product creation.
type ProductUpsertRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
}

// ProductListResponse is the paginated list response payload.
type ProductListResponse struct {
	Products   []types.Product `json:"products"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
