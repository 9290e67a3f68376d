package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eraiiz/internal/shared/models"
)

type authCmds struct {
	serverURL *string
}

func newAuthCmd(serverURL *string) *cobra.Command {
	a := &authCmds{serverURL: serverURL}
	cmd := &cobra.Command{Use: "auth", Short: "Authentication commands"}

	register := &cobra.Command{Use: "register", Short: "Register a new account", RunE: a.register}
	register.Flags().String("role", "buyer", "Account role (buyer or seller)")
	cmd.AddCommand(register)

	cmd.AddCommand(&cobra.Command{Use: "login", Short: "Login and store the session", RunE: a.login})
	cmd.AddCommand(&cobra.Command{Use: "google [code]", Short: "Login via a Google OAuth code", Args: cobra.ExactArgs(1), RunE: a.google})
	cmd.AddCommand(&cobra.Command{Use: "logout", Short: "Clear the local session", RunE: a.logout})
	cmd.AddCommand(&cobra.Command{Use: "whoami", Short: "Show the current session", RunE: a.whoami})
	cmd.AddCommand(&cobra.Command{Use: "choose-role [buyer|seller]", Short: "Pick a role after OAuth signup", Args: cobra.ExactArgs(1), RunE: a.chooseRole})
	cmd.AddCommand(&cobra.Command{Use: "delete-account", Short: "Delete the account and local session", RunE: a.deleteAccount})
	return cmd
}

func (a *authCmds) register(cmd *cobra.Command, args []string) error {
	email, password, err := promptCredentials(cmd)
	if err != nil {
		return err
	}
	role, _ := cmd.Flags().GetString("role")
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, a.serverURL, store)
	resp, err := client.Register(cmd.Context(), email, password, "", models.Role(role))
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if err := store.SetSession(resp.TokenPair, resp.User); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered as %s (%s)\n", resp.User.Email, resp.User.Role)
	return nil
}

func (a *authCmds) login(cmd *cobra.Command, args []string) error {
	email, password, err := promptCredentials(cmd)
	if err != nil {
		return err
	}
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, a.serverURL, store)
	resp, err := client.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := store.SetSession(resp.TokenPair, resp.User); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
	return nil
}

func (a *authCmds) google(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, a.serverURL, store)
	resp, err := client.ExchangeGoogleCode(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("google login failed: %w", err)
	}
	if err := store.SetSession(resp.TokenPair, resp.User); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
	if resp.User.Role == models.RolePending {
		fmt.Fprintln(cmd.OutOrStdout(), "Pick a role with: eraiiz auth choose-role buyer|seller")
	}
	return nil
}

func (a *authCmds) logout(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func (a *authCmds) whoami(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	user, ok := store.User()
	if !ok {
		return fmt.Errorf("not logged in")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.Role)
	return nil
}

func (a *authCmds) chooseRole(cmd *cobra.Command, args []string) error {
	role := models.Role(args[0])
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, a.serverURL, store)
	user, err := client.UpdateMe(cmd.Context(), "", role)
	if err != nil {
		return fmt.Errorf("choose role failed: %w", err)
	}
	if err := store.SetRole(user.Role); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Role set to %s\n", user.Role)
	return nil
}

func (a *authCmds) deleteAccount(cmd *cobra.Command, args []string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	client := newAPI(cmd, a.serverURL, store)
	if err := client.DeleteAccount(cmd.Context()); err != nil {
		return fmt.Errorf("delete account failed: %w", err)
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Account deleted")
	return nil
}

func promptCredentials(cmd *cobra.Command) (email, password string, err error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprint(cmd.OutOrStdout(), "Email: ")
	email, _ = reader.ReadString('\n')
	email = strings.TrimSpace(email)
	pass, err := promptPassword(cmd, reader, "Password: ")
	if err != nil {
		return "", "", err
	}
	return email, string(pass), nil
}

func promptPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		return pass, err
	}
	// Piped input (tests, scripts): read a plain line
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}
