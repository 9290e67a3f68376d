package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eraiiz/internal/server/config"
	"eraiiz/internal/server/repository/sqlite"
	"eraiiz/internal/server/service"
	"eraiiz/internal/shared/models"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	handler, _ := newTestServerWithHub(t)
	return handler
}

func newTestServerWithHub(t *testing.T) (http.Handler, *Hub) {
	t.Helper()
	repo, err := sqlite.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	cfg := config.Config{
		JWTSecret:       "test",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
		MaxRequestBytes: 1 << 20,
	}
	hub := NewHub(nil)
	svcs := service.New(repo, cfg, hub)
	return NewRouter(svcs, hub, nil, cfg.MaxRequestBytes), hub
}

func doJSON(t *testing.T, ts http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func registerUser(t *testing.T, ts http.Handler, email, role string) (models.AuthResponse, map[string]string) {
	t.Helper()
	rr := doJSON(t, ts, "POST", "/api/auth/register",
		map[string]string{"email": email, "password": "pass1234", "name": "Test", "role": role}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rr.Code, rr.Body.String())
	}
	var resp models.AuthResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User.ID == "" {
		t.Fatalf("incomplete auth response: %s", rr.Body.String())
	}
	return resp, map[string]string{"Authorization": "Bearer " + resp.AccessToken}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := doJSON(t, ts, "GET", "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status: %d", rr.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	resp, authz := registerUser(t, ts, "u@example.com", "buyer")

	// Duplicate email
	rr := doJSON(t, ts, "POST", "/api/auth/register",
		map[string]string{"email": "u@example.com", "password": "other", "name": "X"}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", rr.Code)
	}

	// Login
	rr = doJSON(t, ts, "POST", "/api/auth/login",
		map[string]string{"email": "u@example.com", "password": "pass1234"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}

	// Wrong password
	rr = doJSON(t, ts, "POST", "/api/auth/login",
		map[string]string{"email": "u@example.com", "password": "nope"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rr.Code)
	}

	// Session info
	rr = doJSON(t, ts, "GET", "/api/auth/session", nil, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("session: %d", rr.Code)
	}
	var me models.User
	_ = json.Unmarshal(rr.Body.Bytes(), &me)
	if me.Email != "u@example.com" || me.Role != models.RoleBuyer {
		t.Fatalf("session user: %+v", me)
	}

	// Refresh rotates: the new pair works, the old refresh token dies
	rr = doJSON(t, ts, "POST", "/api/auth/refresh",
		map[string]string{"refreshToken": resp.RefreshToken}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rr.Code, rr.Body.String())
	}
	var pair models.TokenPair
	_ = json.Unmarshal(rr.Body.Bytes(), &pair)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("rotated pair incomplete: %s", rr.Body.String())
	}
	if pair.RefreshToken == resp.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	rr = doJSON(t, ts, "POST", "/api/auth/refresh",
		map[string]string{"refreshToken": resp.RefreshToken}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh accepted: %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/api/users/me", nil,
		map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("me with rotated token: %d", rr.Code)
	}
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	ts := newTestServer(t)

	rr := doJSON(t, ts, "GET", "/api/orders", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/api/orders", nil, map[string]string{"Authorization": "Bearer garbage"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rr.Code)
	}
}

func TestGoogleExchangeAndRoleSelection(t *testing.T) {
	ts := newTestServer(t)

	rr := doJSON(t, ts, "POST", "/api/auth/google", map[string]string{"code": "oauth-code-1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("google exchange: %d %s", rr.Code, rr.Body.String())
	}
	var resp models.AuthResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.User.Role != models.RolePending {
		t.Fatalf("oauth user role = %s, want pending", resp.User.Role)
	}
	authz := map[string]string{"Authorization": "Bearer " + resp.AccessToken}

	// A pending user picks a role exactly once
	rr = doJSON(t, ts, "PATCH", "/api/users/me", map[string]string{"role": "seller"}, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("choose role: %d %s", rr.Code, rr.Body.String())
	}
	var me models.User
	_ = json.Unmarshal(rr.Body.Bytes(), &me)
	if me.Role != models.RoleSeller {
		t.Fatalf("role after choice: %s", me.Role)
	}
	rr = doJSON(t, ts, "PATCH", "/api/users/me", map[string]string{"role": "buyer"}, authz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("second role change: %d", rr.Code)
	}

	// Same code again logs into the same account
	rr = doJSON(t, ts, "POST", "/api/auth/google", map[string]string{"code": "oauth-code-1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("google re-exchange: %d", rr.Code)
	}
	var again models.AuthResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &again)
	if again.User.ID != resp.User.ID {
		t.Fatalf("oauth re-login created a new user")
	}
}

func TestCommerceFlow(t *testing.T) {
	ts := newTestServer(t)

	seller, sellerAuthz := registerUser(t, ts, "seller@example.com", "seller")
	_, buyerAuthz := registerUser(t, ts, "buyer@example.com", "buyer")

	// Seller lists a product
	rr := doJSON(t, ts, "POST", "/api/products",
		map[string]any{"name": "Recycled Tote", "priceCents": 2500, "material": "rPET"}, sellerAuthz)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", rr.Code, rr.Body.String())
	}
	var product models.Product
	_ = json.Unmarshal(rr.Body.Bytes(), &product)

	// Buyers cannot list products for sale
	rr = doJSON(t, ts, "POST", "/api/products", map[string]any{"name": "x", "priceCents": 1}, buyerAuthz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("buyer create product: %d", rr.Code)
	}

	// Search
	rr = doJSON(t, ts, "GET", "/api/products?q=tote", nil, buyerAuthz)
	if rr.Code != http.StatusOK {
		t.Fatalf("search: %d", rr.Code)
	}
	var found []models.Product
	_ = json.Unmarshal(rr.Body.Bytes(), &found)
	if len(found) != 1 || found[0].ID != product.ID {
		t.Fatalf("search results: %+v", found)
	}

	// Favorite it
	rr = doJSON(t, ts, "PUT", "/api/favorites/"+product.ID, nil, buyerAuthz)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("add favorite: %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/api/favorites", nil, buyerAuthz)
	var favs []models.Favorite
	_ = json.Unmarshal(rr.Body.Bytes(), &favs)
	if len(favs) != 1 {
		t.Fatalf("favorites: %+v", favs)
	}
	rr = doJSON(t, ts, "DELETE", "/api/favorites/"+product.ID, nil, buyerAuthz)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove favorite: %d", rr.Code)
	}

	// Cart: empty checkout rejected, then add twice merges quantity
	rr = doJSON(t, ts, "POST", "/api/orders", nil, buyerAuthz)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty checkout: %d", rr.Code)
	}
	for i := 0; i < 2; i++ {
		rr = doJSON(t, ts, "POST", "/api/cart",
			map[string]any{"productId": product.ID, "size": "M", "quantity": 1}, buyerAuthz)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("add to cart: %d %s", rr.Code, rr.Body.String())
		}
	}
	rr = doJSON(t, ts, "GET", "/api/cart", nil, buyerAuthz)
	var cart []models.CartItem
	_ = json.Unmarshal(rr.Body.Bytes(), &cart)
	if len(cart) != 1 || cart[0].Quantity != 2 {
		t.Fatalf("cart after merge: %+v", cart)
	}

	// Checkout
	rr = doJSON(t, ts, "POST", "/api/orders", nil, buyerAuthz)
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", rr.Code, rr.Body.String())
	}
	var orders []models.Order
	_ = json.Unmarshal(rr.Body.Bytes(), &orders)
	if len(orders) != 1 {
		t.Fatalf("orders created: %+v", orders)
	}
	order := orders[0]
	if order.Status != models.OrderPending || order.PriceCents != 5000 || order.SellerID != seller.User.ID {
		t.Fatalf("order: %+v", order)
	}
	rr = doJSON(t, ts, "GET", "/api/cart", nil, buyerAuthz)
	cart = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &cart)
	if len(cart) != 0 {
		t.Fatalf("cart not cleared: %+v", cart)
	}

	// Both sides see the order
	for _, authz := range []map[string]string{buyerAuthz, sellerAuthz} {
		rr = doJSON(t, ts, "GET", "/api/orders", nil, authz)
		var list []models.Order
		_ = json.Unmarshal(rr.Body.Bytes(), &list)
		if len(list) != 1 || list[0].ID != order.ID {
			t.Fatalf("order list: %+v", list)
		}
	}

	// Buyer cannot drive the status
	rr = doJSON(t, ts, "PATCH", "/api/orders/"+order.ID,
		map[string]string{"status": "Shipped"}, buyerAuthz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("buyer status change: %d", rr.Code)
	}

	// Seller cannot skip Shipped
	rr = doJSON(t, ts, "PATCH", "/api/orders/"+order.ID,
		map[string]string{"status": "Delivered"}, sellerAuthz)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("skip transition: %d", rr.Code)
	}

	// Pending -> Shipped -> Delivered, then terminal
	for _, status := range []string{"Shipped", "Delivered"} {
		rr = doJSON(t, ts, "PATCH", "/api/orders/"+order.ID,
			map[string]string{"status": status}, sellerAuthz)
		if rr.Code != http.StatusOK {
			t.Fatalf("transition to %s: %d %s", status, rr.Code, rr.Body.String())
		}
	}
	rr = doJSON(t, ts, "PATCH", "/api/orders/"+order.ID,
		map[string]string{"status": "Cancelled"}, sellerAuthz)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("cancel delivered: %d", rr.Code)
	}

	// The buyer got notified about each transition
	rr = doJSON(t, ts, "GET", "/api/notifications", nil, buyerAuthz)
	var notes []models.Notification
	_ = json.Unmarshal(rr.Body.Bytes(), &notes)
	if len(notes) != 2 {
		t.Fatalf("buyer notifications: %+v", notes)
	}
	if notes[0].Read {
		t.Fatalf("notification born read")
	}

	// Mark one read, delete the other; ownership is enforced
	rr = doJSON(t, ts, "PATCH", "/api/notifications/"+notes[0].ID+"/read", nil, sellerAuthz)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign mark read: %d", rr.Code)
	}
	rr = doJSON(t, ts, "PATCH", "/api/notifications/"+notes[0].ID+"/read", nil, buyerAuthz)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("mark read: %d", rr.Code)
	}
	rr = doJSON(t, ts, "DELETE", "/api/notifications/"+notes[1].ID, nil, buyerAuthz)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete notification: %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/api/notifications", nil, buyerAuthz)
	notes = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &notes)
	if len(notes) != 1 || !notes[0].Read {
		t.Fatalf("notifications after read+delete: %+v", notes)
	}
}

func TestDeleteAccount(t *testing.T) {
	ts := newTestServer(t)

	_, authz := registerUser(t, ts, "gone@example.com", "buyer")
	rr := doJSON(t, ts, "POST", "/api/auth/delete-account", nil, authz)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete account: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, ts, "POST", "/api/auth/login",
		map[string]string{"email": "gone@example.com", "password": "pass1234"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("login after delete: %d", rr.Code)
	}
}
