package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"eraiiz/internal/client/guard"
	"eraiiz/internal/shared/models"
)

type orderCmds struct {
	serverURL *string
}

func newOrdersCmd(serverURL *string) *cobra.Command {
	o := &orderCmds{serverURL: serverURL}
	cmd := &cobra.Command{Use: "orders", Short: "Order commands"}
	cmd.AddCommand(&cobra.Command{Use: "list", Short: "List your orders", RunE: o.list})
	cmd.AddCommand(&cobra.Command{Use: "checkout", Short: "Turn the cart into orders", RunE: o.checkout})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-status [order-id] [Pending|Shipped|Delivered|Cancelled]",
		Short: "Update an order's status (sellers)",
		Args:  cobra.ExactArgs(2),
		RunE:  o.setStatus,
	})
	return cmd
}

func (o *orderCmds) list(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check("", "orders.read"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	client := newAPI(cmd, o.serverURL, store)
	orders, err := client.Orders(cmd.Context())
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No orders")
		return nil
	}
	for _, order := range orders {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %s x%d  %d.%02d\n",
			order.ID, order.Status, order.Product, order.Quantity,
			order.PriceCents/100, order.PriceCents%100)
	}
	return nil
}

func (o *orderCmds) checkout(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check(models.RoleBuyer, "cart.write"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	client := newAPI(cmd, o.serverURL, store)
	orders, err := client.Checkout(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Placed %d order(s)\n", len(orders))
	for _, order := range orders {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s x%d\n", order.ID, order.Product, order.Quantity)
	}
	return nil
}

func (o *orderCmds) setStatus(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check("", "orders.update"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	client := newAPI(cmd, o.serverURL, store)
	order, err := client.UpdateOrderStatus(cmd.Context(), args[0], models.OrderStatus(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", order.ID, order.Status)
	return nil
}
