package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packrat-app/packrat/cmd/cli/config"
	"github.com/packrat-app/packrat/internal/client"
	"github.com/packrat-app/packrat/internal/session"
)

// NewSession builds the session manager wired to the configured API and
// the on-disk token store. Shared with the assets commands.
func NewSession() (*session.Manager, *client.Client) {
	c := client.New(config.Load().APIURL)
	return session.NewManager(c, config.TokenStore{}), c
}

// InitAuth registers authentication commands on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(registerCmd(), loginCmd(), logoutCmd(), whoamiCmd())
}

// ==========================
// Register
// ==========================
func registerCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			_, c := NewSession()
			if _, err := c.Register(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("failed to register: %w", err)
			}

			fmt.Println("Account created. You can now login.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (min 8 characters)")

	return cmd
}

// ==========================
// Login
// ==========================
func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				fmt.Print("Email: ")
				fmt.Scanln(&email)
			}
			if password == "" {
				fmt.Print("Password: ")
				fmt.Scanln(&password)
			}

			m, _ := NewSession()
			if !m.Login(cmd.Context(), email, password) {
				return fmt.Errorf("login failed: check email and password")
			}

			fmt.Println("Login successful. Token stored locally.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

// ==========================
// Logout
// ==========================
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _ := NewSession()
			m.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

// ==========================
// Whoami
// ==========================
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _ := NewSession()
			m.Restore(cmd.Context())

			state := m.Current()
			if !state.IsAuthenticated {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("Logged in as %s (%s)\n", state.Email, state.UserID)
			return nil
		},
	}
}
