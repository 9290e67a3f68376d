package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eraiiz/internal/server/service"
)

type Router struct {
	services        *service.Services
	hub             *Hub
	logger          *log.Logger
	maxRequestBytes int64
}

func NewRouter(services *service.Services, hub *Hub, logger *log.Logger, maxRequestBytes int64) http.Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Router{services: services, hub: hub, logger: logger, maxRequestBytes: maxRequestBytes}
	mux := chi.NewRouter()

	mux.Get("/health", r.handleHealth)
	mux.Get("/ws", r.handleWS)

	mux.Post("/api/auth/register", r.handleRegister)
	mux.Post("/api/auth/login", r.handleLogin)
	mux.Post("/api/auth/google", r.handleGoogleExchange)
	mux.Post("/api/auth/refresh", r.handleRefresh)

	mux.Group(func(pr chi.Router) {
		pr.Use(r.authMiddleware)

		pr.Get("/api/auth/session", r.handleSession)
		pr.Post("/api/auth/delete-account", r.handleDeleteAccount)
		pr.Get("/api/users/me", r.handleMe)
		pr.Patch("/api/users/me", r.handleUpdateMe)

		pr.Get("/api/notifications", r.handleListNotifications)
		pr.Patch("/api/notifications/{id}/read", r.handleMarkNotificationRead)
		pr.Delete("/api/notifications/{id}", r.handleDeleteNotification)

		pr.Get("/api/orders", r.handleListOrders)
		pr.Post("/api/orders", r.handleCheckout)
		pr.Patch("/api/orders/{id}", r.handleUpdateOrderStatus)

		pr.Get("/api/products", r.handleSearchProducts)
		pr.Post("/api/products", r.handleCreateProduct)

		pr.Get("/api/favorites", r.handleListFavorites)
		pr.Put("/api/favorites/{productId}", r.handleAddFavorite)
		pr.Delete("/api/favorites/{productId}", r.handleRemoveFavorite)

		pr.Get("/api/cart", r.handleListCart)
		pr.Post("/api/cart", r.handleAddToCart)
		pr.Delete("/api/cart/{productId}", r.handleRemoveFromCart)
	})

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (r *Router) decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	body := http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
