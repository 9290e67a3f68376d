package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eraiiz/internal/client/api"
	"eraiiz/internal/client/feed"
	"eraiiz/internal/client/monitor"
	"eraiiz/internal/client/poll"
	"eraiiz/internal/client/realtime"
	"eraiiz/internal/shared/models"
)

func newWatchCmd(serverURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream order and notification updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, *serverURL)
		},
	}
	return cmd
}

// runWatch wires the realtime channel, the polling fallback and the
// session monitor around one shared feed. The socket is best effort; the
// pollers keep the feed converging even if it never connects.
func runWatch(cmd *cobra.Command, serverURL string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	user, ok := store.User()
	if !ok {
		return fmt.Errorf("not logged in")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	client := api.New(serverURL, store, api.WithOnLogout(func() {
		fmt.Fprintln(out, "Session expired, logged out")
		stop()
	}))
	state := feed.New()

	notificationPoller := poll.New(poll.DefaultInterval, func(ctx context.Context) error {
		notes, err := client.Notifications(ctx)
		if err != nil {
			return err
		}
		state.SetNotifications(notes)
		return nil
	})
	orderPoller := poll.New(poll.DefaultInterval, func(ctx context.Context) error {
		orders, err := client.Orders(ctx)
		if err != nil {
			return err
		}
		state.SetOrders(orders)
		return nil
	})

	channel, err := realtime.New(serverURL, user.ID, realtime.Handlers{
		OnOrderUpdate: func(o models.Order) {
			state.ApplyOrderUpdate(o)
			fmt.Fprintf(out, "order %s -> %s\n", o.ID, o.Status)
		},
		OnNewOrder: func(o models.Order) {
			state.ApplyNewOrder(o)
			fmt.Fprintf(out, "new order %s: %s x%d\n", o.ID, o.Product, o.Quantity)
		},
		OnOrderCancelled: func(orderID string) {
			state.ApplyOrderCancelled(orderID)
			fmt.Fprintf(out, "order %s cancelled\n", orderID)
		},
		OnNotification: func(n models.Notification) {
			state.ApplyNotification(n)
			fmt.Fprintf(out, "[%s] %s\n", n.Type, n.Message)
			notificationPoller.Wake()
		},
	})
	if err != nil {
		return err
	}

	idle := monitor.New(store, client, func() {
		fmt.Fprintln(out, "Logged out for inactivity")
		stop()
	}, monitor.Config{})
	idle.Start()
	defer idle.Stop()

	go channel.Run(ctx)
	go notificationPoller.Run(ctx)
	go orderPoller.Run(ctx)

	fmt.Fprintf(out, "Watching as %s, Ctrl-C to stop\n", user.Email)
	<-ctx.Done()

	fmt.Fprintf(out, "%d unread notification(s)\n", state.Unread())
	return nil
}
