package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eraiiz/internal/client/api"
	"eraiiz/internal/client/session"
)

func NewRootCmd(version, buildDate string) *cobra.Command {
	var serverURL string
	root := &cobra.Command{
		Use:   "eraiiz",
		Short: "Eraiiz marketplace CLI",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Server base URL")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newAuthCmd(&serverURL))
	root.AddCommand(newNotificationsCmd(&serverURL))
	root.AddCommand(newOrdersCmd(&serverURL))
	root.AddCommand(newShopCmd(&serverURL))
	root.AddCommand(newWatchCmd(&serverURL))
	return root
}

func defaultServerURL() string {
	if v, ok := os.LookupEnv("ERAIIZ_SERVER_URL"); ok && v != "" {
		return v
	}
	return "http://localhost:8080"
}

func openSession() (*session.Store, error) {
	store, err := session.Open(session.DefaultDir())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

func newAPI(cmd *cobra.Command, serverURL *string, store *session.Store) *api.Client {
	return api.New(*serverURL, store, api.WithOnLogout(func() {
		fmt.Fprintln(cmd.OutOrStdout(), "Session expired, logged out")
	}))
}
