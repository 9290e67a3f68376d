// Package feed holds the in-memory notification and order lists that both
// the realtime channel and the polling fallback write into. All mutations
// are keyed by id and idempotent, so pushed and polled updates can
// interleave in any order without corrupting state.
package feed

import (
	"sync"

	"eraiiz/internal/shared/models"
)

type Feed struct {
	mu            sync.RWMutex
	notifications []models.Notification
	orders        []models.Order
	// pendingRead holds optimistic mark-read hints not yet confirmed by
	// the server; a poll snapshot re-applies them until confirmation.
	pendingRead map[string]struct{}
}

func New() *Feed {
	return &Feed{pendingRead: make(map[string]struct{})}
}

// Notifications returns a copy of the current list, newest first.
func (f *Feed) Notifications() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

// Orders returns a copy of the current list.
func (f *Feed) Orders() []models.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Order, len(f.orders))
	copy(out, f.orders)
	return out
}

// ApplyOrderUpdate patches the status of a known order. Updates for
// orders not in the list are dropped; the next poll will bring them in.
func (f *Feed) ApplyOrderUpdate(o models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == o.ID {
			f.orders[i].Status = o.Status
			f.orders[i].UpdatedAt = o.UpdatedAt
			return
		}
	}
}

// ApplyNewOrder prepends an unseen order; a duplicate push degrades to a
// status patch.
func (f *Feed) ApplyNewOrder(o models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == o.ID {
			f.orders[i].Status = o.Status
			f.orders[i].UpdatedAt = o.UpdatedAt
			return
		}
	}
	f.orders = append([]models.Order{o}, f.orders...)
}

// ApplyOrderCancelled marks a known order cancelled; unknown ids no-op.
func (f *Feed) ApplyOrderCancelled(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = models.OrderCancelled
			return
		}
	}
}

// ApplyNotification prepends an unseen notification; duplicates no-op.
func (f *Feed) ApplyNotification(n models.Notification) {
	if n.ID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == n.ID {
			return
		}
	}
	f.notifications = append([]models.Notification{n}, f.notifications...)
}

// SetOrders replaces the order list with a polled snapshot.
func (f *Feed) SetOrders(list []models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = make([]models.Order, len(list))
	copy(f.orders, list)
}

// SetNotifications replaces the list with a polled snapshot. The server
// response is authoritative; unconfirmed mark-read hints are re-applied
// on top as a rendering hint, and dropped once the server echoes them.
func (f *Feed) SetNotifications(list []models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = make([]models.Notification, len(list))
	copy(f.notifications, list)
	for i := range f.notifications {
		n := &f.notifications[i]
		if _, pending := f.pendingRead[n.ID]; !pending {
			continue
		}
		if n.Read {
			delete(f.pendingRead, n.ID)
			continue
		}
		n.Read = true
	}
}

// MarkRead flags a notification read optimistically and records the hint
// pending server confirmation.
func (f *Feed) MarkRead(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = true
			f.pendingRead[id] = struct{}{}
			return
		}
	}
}

// ConfirmRead settles a successful mark-read PATCH.
func (f *Feed) ConfirmRead(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pendingRead, id)
}

// RevertRead rolls back an optimistic mark-read whose PATCH failed.
func (f *Feed) RevertRead(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pendingRead, id)
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = false
			return
		}
	}
}

// RemoveNotification drops a notification locally (after a DELETE).
func (f *Feed) RemoveNotification(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pendingRead, id)
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return
		}
	}
}

// Unread counts notifications not yet read (hints included).
func (f *Feed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for i := range f.notifications {
		if !f.notifications[i].Read {
			n++
		}
	}
	return n
}
