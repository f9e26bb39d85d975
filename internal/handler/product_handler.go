package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vsgifts-api/internal/service"
	"vsgifts-api/internal/util"
)

type ProductHandler struct {
	responder
	catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		responder: responder{logger: logger},
		catalog:   catalog,
	}
}

// RegisterRoutes mounts /products. Reads are public; writes need protect
// followed by admin.
func (h *ProductHandler) RegisterRoutes(router chi.Router, protect, admin func(http.Handler) http.Handler) {
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured", h.Featured)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/related", h.Related)

		r.Group(func(r chi.Router) {
			r.Use(protect, admin)
			r.Post("/", h.Create)
			r.Post("/images/upload-url", h.ImageUploadURL)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(products, ""))
}

func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Featured(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(products, ""))
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(products, ""))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(product, ""))
}

func (h *ProductHandler) Related(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Related(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(products, ""))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	product, err := h.catalog.Create(r.Context(), &in)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.logger.Info("Product created via HTTP",
		util.String("product_id", product.ID),
		util.String("admin_id", accountFromContext(r.Context()).ID),
	)
	h.respondWithJSON(w, http.StatusCreated, successResponse(product, "Product created successfully"))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	product, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(product, "Product updated successfully"))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Product removed successfully"))
}

func (h *ProductHandler) ImageUploadURL(w http.ResponseWriter, r *http.Request) {
	var req service.ImageUploadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	upload, err := h.catalog.PresignImageUpload(r.Context(), &req)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(upload, ""))
}
