package api

import (
	"context"
	"net/http"
	"net/url"

	"eraiiz/internal/shared/models"
)

// Auth

func (c *Client) Register(ctx context.Context, email, password, name string, role models.Role) (models.AuthResponse, error) {
	req := map[string]string{"email": email, "password": password, "name": name, "role": string(role)}
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	req := map[string]string{"email": email, "password": password}
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out)
	return out, err
}

// ExchangeGoogleCode trades an OAuth authorization code for a session.
// First-time OAuth users come back with role "pending" and must pick a
// role through UpdateMe before the guard lets them into role-gated views.
func (c *Client) ExchangeGoogleCode(ctx context.Context, code string) (models.AuthResponse, error) {
	req := map[string]string{"code": code}
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/google", req, &out)
	return out, err
}

func (c *Client) SessionInfo(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.doAuthed(ctx, http.MethodGet, "/api/auth/session", nil, &out)
	return out, err
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.doAuthed(ctx, http.MethodPost, "/api/auth/delete-account", nil, nil)
}

// Users

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.doAuthed(ctx, http.MethodGet, "/api/users/me", nil, &out)
	return out, err
}

// UpdateMe patches the profile. Role changes are only accepted by the
// server for users still in the "pending" role-selection state.
func (c *Client) UpdateMe(ctx context.Context, name string, role models.Role) (models.User, error) {
	req := map[string]string{}
	if name != "" {
		req["name"] = name
	}
	if role != "" {
		req["role"] = string(role)
	}
	var out models.User
	err := c.doAuthed(ctx, http.MethodPatch, "/api/users/me", req, &out)
	return out, err
}

// Notifications

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	err := c.doAuthed(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.doAuthed(ctx, http.MethodPatch, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.doAuthed(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

// Orders

func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := c.doAuthed(ctx, http.MethodGet, "/api/orders", nil, &out)
	return out, err
}

// Checkout turns the current cart into orders.
func (c *Client) Checkout(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := c.doAuthed(ctx, http.MethodPost, "/api/orders", nil, &out)
	return out, err
}

// UpdateOrderStatus drives a server-authoritative status transition
// (seller or admin only); the server pushes the result to the buyer.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	req := map[string]string{"status": string(status)}
	var out models.Order
	err := c.doAuthed(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id), req, &out)
	return out, err
}

// Favorites

func (c *Client) Favorites(ctx context.Context) ([]models.Favorite, error) {
	var out []models.Favorite
	err := c.doAuthed(ctx, http.MethodGet, "/api/favorites", nil, &out)
	return out, err
}

func (c *Client) AddFavorite(ctx context.Context, productID string) error {
	return c.doAuthed(ctx, http.MethodPut, "/api/favorites/"+url.PathEscape(productID), nil, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, productID string) error {
	return c.doAuthed(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(productID), nil, nil)
}

// Cart

func (c *Client) Cart(ctx context.Context) ([]models.CartItem, error) {
	var out []models.CartItem
	err := c.doAuthed(ctx, http.MethodGet, "/api/cart", nil, &out)
	return out, err
}

func (c *Client) AddToCart(ctx context.Context, item models.CartItem) error {
	return c.doAuthed(ctx, http.MethodPost, "/api/cart", item, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID, size string) error {
	path := "/api/cart/" + url.PathEscape(productID)
	if size != "" {
		path += "?size=" + url.QueryEscape(size)
	}
	return c.doAuthed(ctx, http.MethodDelete, path, nil, nil)
}

// Catalog

func (c *Client) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	var out []models.Product
	err := c.doAuthed(ctx, http.MethodGet, "/api/products?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var out models.Product
	err := c.doAuthed(ctx, http.MethodPost, "/api/products", p, &out)
	return out, err
}
