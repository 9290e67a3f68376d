package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type notificationCmds struct {
	serverURL *string
}

func newNotificationsCmd(serverURL *string) *cobra.Command {
	n := &notificationCmds{serverURL: serverURL}
	cmd := &cobra.Command{Use: "notifications", Short: "Notification feed"}
	cmd.AddCommand(&cobra.Command{Use: "list", Short: "List notifications", RunE: n.list})
	cmd.AddCommand(&cobra.Command{Use: "read [id]", Short: "Mark a notification read", Args: cobra.ExactArgs(1), RunE: n.read})
	cmd.AddCommand(&cobra.Command{Use: "delete [id]", Short: "Delete a notification", Args: cobra.ExactArgs(1), RunE: n.delete})
	return cmd
}

func (n *notificationCmds) list(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, n.serverURL, store)
	notes, err := client.Notifications(cmd.Context())
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
		return nil
	}
	for _, note := range notes {
		marker := " "
		if !note.Read {
			marker = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s  %s\n", marker, note.Type, note.ID, note.Message)
	}
	return nil
}

func (n *notificationCmds) read(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, n.serverURL, store)
	if err := client.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Marked read")
	return nil
}

func (n *notificationCmds) delete(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, n.serverURL, store)
	if err := client.DeleteNotification(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
	return nil
}
