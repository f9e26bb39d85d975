package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/service"
)

// UserHandler handles the signed-in customer's profile, address book,
// cart and wishlist.
type UserHandler struct {
	responder
	profiles *service.ProfileService
}

func NewUserHandler(profiles *service.ProfileService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		responder: responder{logger: logger},
		profiles:  profiles,
	}
}

type profileResponse struct {
	models.Summary
	IsEmailVerified bool             `json:"isEmailVerified"`
	Addresses       []models.Address `json:"addresses"`
}

type cartRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

// RegisterRoutes mounts /users; protect must authenticate the caller.
func (h *UserHandler) RegisterRoutes(router chi.Router, protect func(http.Handler) http.Handler) {
	router.Route("/users", func(r chi.Router) {
		r.Use(protect)

		r.Get("/profile", h.GetProfile)
		r.Post("/profile/address", h.AddAddress)
		r.Put("/profile/address/{addressID}", h.UpdateAddress)
		r.Delete("/profile/address/{addressID}", h.DeleteAddress)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.ownerOrAdmin)
			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Delete("/cart/{productID}", h.RemoveFromCart)
			r.Get("/wishlist", h.GetWishlist)
			r.Post("/wishlist", h.AddToWishlist)
			r.Delete("/wishlist/{productID}", h.RemoveFromWishlist)
		})
	})
}

func (h *UserHandler) ownerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := service.CanAccess(accountFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
			h.respondWithError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := h.profiles.Profile(r.Context(), accountFromContext(r.Context()).ID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(profileResponse{
		Summary:         account.Summary(),
		IsEmailVerified: account.IsEmailVerified,
		Addresses:       account.Addresses,
	}, ""))
}

func (h *UserHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var in service.AddressInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	list, err := h.profiles.AddAddress(r.Context(), accountFromContext(r.Context()).ID, in)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(list, "Address added successfully!"))
}

func (h *UserHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var in service.AddressInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	list, err := h.profiles.UpdateAddress(r.Context(), accountFromContext(r.Context()).ID, chi.URLParam(r, "addressID"), in)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(list, "Address updated successfully!"))
}

func (h *UserHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	list, err := h.profiles.DeleteAddress(r.Context(), accountFromContext(r.Context()).ID, chi.URLParam(r, "addressID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(list, "Address deleted successfully!"))
}

func (h *UserHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Cart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(view, ""))
}

func (h *UserHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	view, err := h.profiles.AddToCart(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(view, "Item added to cart"))
}

func (h *UserHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.RemoveFromCart(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(view, "Item removed from cart"))
}

func (h *UserHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.profiles.Wishlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(items, ""))
}

func (h *UserHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	items, err := h.profiles.AddToWishlist(r.Context(), chi.URLParam(r, "id"), req.ProductID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(items, "Item added to wishlist"))
}

func (h *UserHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.profiles.RemoveFromWishlist(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(items, "Item removed from wishlist"))
}
