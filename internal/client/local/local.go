// Package local holds client-side optimistic state for favorites and the
// cart: apply immediately, sync to the backend, reconcile or revert based
// on the awaited result. Never fire and forget.
package local

import (
	"context"
	"sort"
	"sync"

	"eraiiz/internal/shared/models"
)

// FavoriteSyncer is the backend surface favorites sync against.
type FavoriteSyncer interface {
	AddFavorite(ctx context.Context, productID string) error
	RemoveFavorite(ctx context.Context, productID string) error
}

// Favorites tracks the heart-icon state per product. After Toggle settles,
// the state reflects only what the server confirmed.
type Favorites struct {
	mu      sync.Mutex
	set     map[string]struct{}
	backend FavoriteSyncer
}

func NewFavorites(s FavoriteSyncer) *Favorites {
	return &Favorites{set: make(map[string]struct{}), backend: s}
}

// Load seeds the set from server truth fetched on view load.
func (f *Favorites) Load(items []models.Favorite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = make(map[string]struct{}, len(items))
	for _, it := range items {
		f.set[it.ProductID] = struct{}{}
	}
}

func (f *Favorites) IsFavorited(productID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.set[productID]
	return ok
}

// Toggle flips the favorite optimistically, syncs, and reverts on error.
// The returned bool is the settled state.
func (f *Favorites) Toggle(ctx context.Context, productID string) (bool, error) {
	f.mu.Lock()
	_, was := f.set[productID]
	if was {
		delete(f.set, productID)
	} else {
		f.set[productID] = struct{}{}
	}
	f.mu.Unlock()

	var err error
	if was {
		err = f.backend.RemoveFavorite(ctx, productID)
	} else {
		err = f.backend.AddFavorite(ctx, productID)
	}
	if err != nil {
		f.mu.Lock()
		if was {
			f.set[productID] = struct{}{}
		} else {
			delete(f.set, productID)
		}
		f.mu.Unlock()
		return was, err
	}
	return !was, nil
}

// CartSyncer is the backend surface the cart syncs against.
type CartSyncer interface {
	AddToCart(ctx context.Context, item models.CartItem) error
	RemoveFromCart(ctx context.Context, productID, size string) error
}

type cartKey struct {
	productID string
	size      string
}

// Cart is the optimistic cart, keyed by productId+size.
type Cart struct {
	mu      sync.Mutex
	items   map[cartKey]models.CartItem
	backend CartSyncer
}

func NewCart(s CartSyncer) *Cart {
	return &Cart{items: make(map[cartKey]models.CartItem), backend: s}
}

// Load seeds the cart from server truth fetched on view load.
func (c *Cart) Load(items []models.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[cartKey]models.CartItem, len(items))
	for _, it := range items {
		c.items[cartKey{it.ProductID, it.Size}] = it
	}
}

// Items returns the cart contents in a stable order.
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CartItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Size < out[j].Size
	})
	return out
}

// Add merges item into the cart optimistically and syncs; on error the
// previous state of that line is restored.
func (c *Cart) Add(ctx context.Context, item models.CartItem) error {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	key := cartKey{item.ProductID, item.Size}

	c.mu.Lock()
	prev, had := c.items[key]
	next := item
	if had {
		next.Quantity += prev.Quantity
	}
	c.items[key] = next
	c.mu.Unlock()

	if err := c.backend.AddToCart(ctx, item); err != nil {
		c.mu.Lock()
		if had {
			c.items[key] = prev
		} else {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Remove drops a cart line optimistically and syncs; on error the line is
// restored.
func (c *Cart) Remove(ctx context.Context, productID, size string) error {
	key := cartKey{productID, size}

	c.mu.Lock()
	prev, had := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if err := c.backend.RemoveFromCart(ctx, productID, size); err != nil {
		if had {
			c.mu.Lock()
			c.items[key] = prev
			c.mu.Unlock()
		}
		return err
	}
	return nil
}
