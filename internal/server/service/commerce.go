package service

import (
	"context"
	"errors"
	"fmt"

	"eraiiz/internal/shared/models"
)

var ErrForbidden = errors.New("forbidden")

// CommerceService covers the catalog, cart, favorites, orders and
// notifications. Order status transitions are authoritative here: every
// accepted transition is pushed to the affected users over the realtime
// feed and persisted as a notification.
type CommerceService struct {
	repo Repository
	pub  Publisher
}

// Catalog

func (s *CommerceService) CreateProduct(ctx context.Context, sellerID string, p models.Product) (models.Product, error) {
	if p.Name == "" {
		return models.Product{}, errors.New("name required")
	}
	if p.PriceCents <= 0 {
		return models.Product{}, errors.New("price must be positive")
	}
	p.SellerID = sellerID
	return s.repo.CreateProduct(ctx, p)
}

func (s *CommerceService) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}

// Cart

func (s *CommerceService) AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	if item.ProductID == "" {
		return errors.New("productId required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if _, err := s.repo.GetProduct(ctx, item.ProductID); err != nil {
		return err
	}
	return s.repo.UpsertCartItem(ctx, userID, item)
}

func (s *CommerceService) RemoveFromCart(ctx context.Context, userID, productID, size string) error {
	return s.repo.DeleteCartItem(ctx, userID, productID, size)
}

func (s *CommerceService) ListCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	return s.repo.ListCart(ctx, userID)
}

// Favorites

func (s *CommerceService) AddFavorite(ctx context.Context, userID, productID string) error {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return err
	}
	return s.repo.AddFavorite(ctx, userID, productID)
}

func (s *CommerceService) RemoveFavorite(ctx context.Context, userID, productID string) error {
	return s.repo.RemoveFavorite(ctx, userID, productID)
}

func (s *CommerceService) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	return s.repo.ListFavorites(ctx, userID)
}

// Orders

func (s *CommerceService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, userID)
}

// Checkout turns every cart line into a pending order, clears the cart,
// and notifies each seller through the realtime feed.
func (s *CommerceService) Checkout(ctx context.Context, buyerID string) ([]models.Order, error) {
	items, err := s.repo.ListCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}
	var orders []models.Order
	for _, item := range items {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		order, err := s.repo.CreateOrder(ctx, models.Order{
			BuyerID:    buyerID,
			SellerID:   product.SellerID,
			ProductID:  product.ID,
			Product:    product.Name,
			Size:       item.Size,
			Quantity:   item.Quantity,
			PriceCents: product.PriceCents * int64(item.Quantity),
			Status:     models.OrderPending,
		})
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)

		s.pub.Publish(order.SellerID, models.OrderEvent{Type: models.EventNewOrder, Order: order})
		s.notify(ctx, order.SellerID, models.NotificationOrder,
			fmt.Sprintf("New order for %s (x%d)", order.Product, order.Quantity))
	}
	if err := s.repo.ClearCart(ctx, buyerID); err != nil {
		return nil, err
	}
	return orders, nil
}

// validTransitions is the server-authoritative order state machine.
var validTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:   {models.OrderDelivered, models.OrderCancelled},
	models.OrderDelivered: {},
	models.OrderCancelled: {},
}

// UpdateOrderStatus applies a transition on behalf of the order's seller
// or an admin, then pushes the result to the buyer.
func (s *CommerceService) UpdateOrderStatus(ctx context.Context, actor Claims, orderID string, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("invalid status %q", status)
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if actor.Role != models.RoleAdmin && order.SellerID != actor.UserID {
		return models.Order{}, ErrForbidden
	}
	allowed := false
	for _, next := range validTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.Order{}, fmt.Errorf("cannot transition %s order to %s", order.Status, status)
	}
	order, err = s.repo.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return models.Order{}, err
	}

	eventType := models.EventOrderUpdate
	if status == models.OrderCancelled {
		eventType = models.EventOrderCancelled
	}
	s.pub.Publish(order.BuyerID, models.OrderEvent{Type: eventType, Order: order})
	s.notify(ctx, order.BuyerID, models.NotificationOrder,
		fmt.Sprintf("Your order for %s is now %s", order.Product, order.Status))
	return order, nil
}

// Notifications

func (s *CommerceService) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

func (s *CommerceService) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkNotificationRead(ctx, userID, id)
}

func (s *CommerceService) DeleteNotification(ctx context.Context, userID, id string) error {
	return s.repo.DeleteNotification(ctx, userID, id)
}

// notify persists a notification and pushes it live. Push failures are
// invisible here; the client polls the list anyway.
func (s *CommerceService) notify(ctx context.Context, userID string, typ models.NotificationType, message string) {
	n, err := s.repo.CreateNotification(ctx, models.Notification{
		UserID:  userID,
		Type:    typ,
		Message: message,
	})
	if err != nil {
		return
	}
	s.pub.Publish(userID, n)
}
