package service

import (
	"context"
	"time"

	"eraiiz/internal/server/config"
	"eraiiz/internal/shared/models"
)

// Repository is the storage surface the services depend on.
type Repository interface {
	CreateUser(ctx context.Context, email, name string, role models.Role, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, string, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id, name string, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (userID string, expiresAt time.Time, err error)
	DeleteRefreshToken(ctx context.Context, token string) error

	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)

	CreateOrder(ctx context.Context, o models.Order) (models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error)

	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	DeleteNotification(ctx context.Context, userID, id string) error

	AddFavorite(ctx context.Context, userID, productID string) error
	RemoveFavorite(ctx context.Context, userID, productID string) error
	ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error)

	UpsertCartItem(ctx context.Context, userID string, item models.CartItem) error
	DeleteCartItem(ctx context.Context, userID, productID, size string) error
	ListCart(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID string) error
}

// Publisher pushes a realtime event to a connected user. A nil publisher
// (or a user with no open socket) drops the event; the client's polling
// fallback covers the gap.
type Publisher interface {
	Publish(userID string, v any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

type Services struct {
	Auth     *AuthService
	Commerce *CommerceService
}

func New(repo Repository, cfg config.Config, pub Publisher) *Services {
	if pub == nil {
		pub = noopPublisher{}
	}
	auth := &AuthService{
		repo:       repo,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
	return &Services{
		Auth:     auth,
		Commerce: &CommerceService{repo: repo, pub: pub},
	}
}
