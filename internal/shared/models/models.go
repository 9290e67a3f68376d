package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleAdmin   Role = "admin"
	RolePending Role = "pending"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin, RolePending:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthResponse is returned by login, register and OAuth code exchange.
type AuthResponse struct {
	TokenPair
	User User `json:"user"`
}

type NotificationType string

const (
	NotificationOrder   NotificationType = "order"
	NotificationProduct NotificationType = "product"
	NotificationAccount NotificationType = "account"
	NotificationSystem  NotificationType = "system"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	Data      json.RawMessage  `json:"data,omitempty"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID         string      `json:"id"`
	BuyerID    string      `json:"buyerId"`
	SellerID   string      `json:"sellerId"`
	ProductID  string      `json:"productId"`
	Product    string      `json:"product"`
	Size       string      `json:"size,omitempty"`
	Quantity   int         `json:"quantity"`
	PriceCents int64       `json:"priceCents"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type Product struct {
	ID         string    `json:"id"`
	SellerID   string    `json:"sellerId"`
	Name       string    `json:"name"`
	Material   string    `json:"material,omitempty"`
	PriceCents int64     `json:"priceCents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CartItem struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

type Favorite struct {
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Realtime event types pushed over the WebSocket feed. A payload whose type
// is not one of these is treated as a bare Notification object.
const (
	EventOrderUpdate    = "order_update"
	EventNewOrder       = "new_order"
	EventOrderCancelled = "order_cancelled"
)

// OrderEvent is the push envelope for order events.
type OrderEvent struct {
	Type  string `json:"type"`
	Order Order  `json:"order"`
}
