package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eraiiz/internal/client/guard"
	"eraiiz/internal/client/local"
	"eraiiz/internal/shared/models"
)

type shopCmds struct {
	serverURL *string
}

func newShopCmd(serverURL *string) *cobra.Command {
	s := &shopCmds{serverURL: serverURL}
	cmd := &cobra.Command{Use: "shop", Short: "Catalog, favorites and cart"}

	cmd.AddCommand(&cobra.Command{Use: "search [query]", Short: "Search products", Args: cobra.MaximumNArgs(1), RunE: s.search})
	cmd.AddCommand(&cobra.Command{Use: "history", Short: "Show recent searches", RunE: s.history})

	sell := &cobra.Command{Use: "sell [name] [price-cents]", Short: "List a product for sale (sellers)", Args: cobra.ExactArgs(2), RunE: s.sell}
	sell.Flags().String("material", "", "Product material")
	cmd.AddCommand(sell)

	favorites := &cobra.Command{Use: "favorites", Short: "Favorites"}
	favorites.AddCommand(&cobra.Command{Use: "list", Short: "List favorites", RunE: s.favoritesList})
	favorites.AddCommand(&cobra.Command{Use: "toggle [product-id]", Short: "Toggle a favorite", Args: cobra.ExactArgs(1), RunE: s.favoritesToggle})
	cmd.AddCommand(favorites)

	cart := &cobra.Command{Use: "cart", Short: "Shopping cart"}
	cart.AddCommand(&cobra.Command{Use: "list", Short: "Show the cart", RunE: s.cartList})
	add := &cobra.Command{Use: "add [product-id]", Short: "Add a product to the cart", Args: cobra.ExactArgs(1), RunE: s.cartAdd}
	add.Flags().String("size", "", "Size variant")
	add.Flags().Int("quantity", 1, "Quantity")
	cart.AddCommand(add)
	remove := &cobra.Command{Use: "remove [product-id]", Short: "Remove a cart line", Args: cobra.ExactArgs(1), RunE: s.cartRemove}
	remove.Flags().String("size", "", "Size variant")
	cart.AddCommand(remove)
	cmd.AddCommand(cart)

	return cmd
}

func (s *shopCmds) search(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	client := newAPI(cmd, s.serverURL, store)
	products, err := client.SearchProducts(cmd.Context(), query)
	if err != nil {
		return err
	}
	if query != "" {
		_ = store.RecordSearch(query)
	}
	if len(products) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No products found")
		return nil
	}
	for _, p := range products {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %d.%02d  %s\n",
			p.ID, p.Name, p.PriceCents/100, p.PriceCents%100, p.Material)
	}
	return nil
}

func (s *shopCmds) history(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	terms := store.SearchHistory()
	if len(terms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recent searches")
		return nil
	}
	for _, term := range terms {
		fmt.Fprintln(cmd.OutOrStdout(), term)
	}
	return nil
}

func (s *shopCmds) sell(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check("", "products.write"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	material, _ := cmd.Flags().GetString("material")
	client := newAPI(cmd, s.serverURL, store)
	product, err := client.CreateProduct(cmd.Context(), models.Product{
		Name:       args[0],
		PriceCents: price,
		Material:   material,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listed %s as %s\n", product.Name, product.ID)
	return nil
}

func (s *shopCmds) favoritesList(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, s.serverURL, store)
	favs, err := client.Favorites(cmd.Context())
	if err != nil {
		return err
	}
	if len(favs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No favorites")
		return nil
	}
	for _, f := range favs {
		fmt.Fprintln(cmd.OutOrStdout(), f.ProductID)
	}
	return nil
}

func (s *shopCmds) favoritesToggle(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check("", "favorites.write"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	client := newAPI(cmd, s.serverURL, store)
	favs, err := client.Favorites(cmd.Context())
	if err != nil {
		return err
	}
	state := local.NewFavorites(client)
	state.Load(favs)
	on, err := state.Toggle(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("toggle failed (state reverted): %w", err)
	}
	if on {
		fmt.Fprintln(cmd.OutOrStdout(), "Favorited")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Unfavorited")
	}
	return nil
}

func (s *shopCmds) cartList(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, s.serverURL, store)
	items, err := client.Cart(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Cart is empty")
		return nil
	}
	for _, it := range items {
		size := it.Size
		if size == "" {
			size = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  size %s  x%d\n", it.ProductID, size, it.Quantity)
	}
	return nil
}

func (s *shopCmds) cartAdd(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if d := guard.New(store).Check(models.RoleBuyer, "cart.write"); d != guard.Allow {
		return fmt.Errorf("access denied, go to %s", d.Redirect())
	}
	size, _ := cmd.Flags().GetString("size")
	quantity, _ := cmd.Flags().GetInt("quantity")
	client := newAPI(cmd, s.serverURL, store)
	cart := local.NewCart(client)
	if err := cart.Add(cmd.Context(), models.CartItem{ProductID: args[0], Size: size, Quantity: quantity}); err != nil {
		return fmt.Errorf("add failed (cart reverted): %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Added to cart")
	return nil
}

func (s *shopCmds) cartRemove(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	size, _ := cmd.Flags().GetString("size")
	client := newAPI(cmd, s.serverURL, store)
	if err := client.RemoveFromCart(cmd.Context(), args[0], size); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Removed from cart")
	return nil
}
