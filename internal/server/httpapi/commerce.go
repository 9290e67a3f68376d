package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eraiiz/internal/server/repository"
	"eraiiz/internal/server/service"
	"eraiiz/internal/shared/models"
)

// Notifications

func (r *Router) handleListNotifications(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	list, err := r.services.Commerce.ListNotifications(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleMarkNotificationRead(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	err := r.services.Commerce.MarkNotificationRead(req.Context(), claims.UserID, chi.URLParam(req, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleDeleteNotification(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	err := r.services.Commerce.DeleteNotification(req.Context(), claims.UserID, chi.URLParam(req, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders

func (r *Router) handleListOrders(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	list, err := r.services.Commerce.ListOrders(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleCheckout(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	orders, err := r.services.Commerce.Checkout(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, orders)
}

type updateOrderRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (r *Router) handleUpdateOrderStatus(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	var body updateOrderRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	order, err := r.services.Commerce.UpdateOrderStatus(req.Context(), claims, chi.URLParam(req, "id"), body.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "not your order")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Products

func (r *Router) handleSearchProducts(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Commerce.SearchProducts(req.Context(), req.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []models.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleCreateProduct(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	if claims.Role != models.RoleSeller && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "sellers only")
		return
	}
	var body models.Product
	if !r.decodeBody(w, req, &body) {
		return
	}
	product, err := r.services.Commerce.CreateProduct(req.Context(), claims.UserID, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// Favorites

func (r *Router) handleListFavorites(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	list, err := r.services.Commerce.ListFavorites(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []models.Favorite{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleAddFavorite(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	err := r.services.Commerce.AddFavorite(req.Context(), claims.UserID, chi.URLParam(req, "productId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleRemoveFavorite(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	err := r.services.Commerce.RemoveFavorite(req.Context(), claims.UserID, chi.URLParam(req, "productId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart

func (r *Router) handleListCart(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	list, err := r.services.Commerce.ListCart(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []models.CartItem{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleAddToCart(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	var body models.CartItem
	if !r.decodeBody(w, req, &body) {
		return
	}
	if err := r.services.Commerce.AddToCart(req.Context(), claims.UserID, body); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleRemoveFromCart(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	err := r.services.Commerce.RemoveFromCart(req.Context(), claims.UserID,
		chi.URLParam(req, "productId"), req.URL.Query().Get("size"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
