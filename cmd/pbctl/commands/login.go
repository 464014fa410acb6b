package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pbclient"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var (
		collection string
		identity   string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a PocketBase server",
		Long:  "Authenticate against an auth collection and save the session in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := viper.GetString("url")
			if url == "" {
				return constants.ErrNoServerConfigured
			}

			if identity == "" {
				reader := bufio.NewReader(os.Stdin)
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Email or username: ")
				identity, _ = reader.ReadString('\n')
				identity = strings.TrimSpace(identity)
			}

			if password == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Password: ")

				bytePassword, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = string(bytePassword)
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}

			if password == "" {
				return constants.ErrEmptyPassword
			}

			client, err := pbclient.NewWithPassword(context.Background(), newClientConfig(url), collection, identity, password)
			if err != nil {
				return err
			}

			state := client.AuthState()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged in to %s as %s (%s)\n",
				client.BaseURL(), displayIdentity(state.Record, identity), state.CollectionName)

			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", pocketbase.SuperusersCollection, "auth collection to log in to")
	cmd.Flags().StringVarP(&identity, "identity", "i", "", "email or username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the PocketBase server",
		Long:  "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Session == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")

				return nil
			}

			err := NewConfigPersister(config.URL).PersistSession(pocketbase.AuthState{})
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")

			return nil
		},
	}
}

// NewRefreshCommand creates the refresh command
func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the saved session token",
		Long:  "Exchange the saved token for a fresh one before it expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, session, err := sessionClient()
			if err != nil {
				return err
			}

			coll, err := client.Collection(session.Collection)
			if err != nil {
				return err
			}

			_, err = coll.AuthRefresh(context.Background())
			if err != nil {
				return fmt.Errorf("failed to refresh session: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed, token %s\n", expiryText(client.AuthState()))

			return nil
		},
	}
}

// NewImpersonateCommand creates the impersonate command
func NewImpersonateCommand() *cobra.Command {
	var (
		collection string
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "impersonate RECORD_ID",
		Short: "Issue a token for another record",
		Long:  "Print a non-refreshable token for RECORD_ID. Requires a superuser session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := sessionClient()
			if err != nil {
				return err
			}

			coll, err := client.Collection(collection)
			if err != nil {
				return err
			}

			impersonated, err := coll.Impersonate(context.Background(), args[0], duration)
			if err != nil {
				return fmt.Errorf("failed to impersonate %s: %w", args[0], err)
			}

			state := impersonated.AuthState()

			return render(cmd.OutOrStdout(), map[string]any{"token": state.Token, "record": state.Record},
				func(w io.Writer) error {
					_, err := fmt.Fprintln(w, state.Token)

					return err
				})
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "users", "auth collection of the record")
	cmd.Flags().DurationVar(&duration, "duration", 0, "token lifetime (server default when zero)")

	return cmd
}

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the saved session",
		Long:    "Display the server, auth collection, record, and token expiry of the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Session == nil {
				return constants.ErrNotLoggedIn
			}

			session, err := config.Session.AuthResult()
			if err != nil {
				return err
			}

			state := pocketbase.AuthState{
				Token:          session.Token,
				Record:         session.Record,
				CollectionName: config.Session.Collection,
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Property", "Value")
			_ = table.Append("Server", config.Session.URL)
			_ = table.Append("Collection", state.CollectionName)
			_ = table.Append("Record", valueOrNA(state.Record.ID()))
			_ = table.Append("Identity", displayIdentity(state.Record, constants.NotAvailable))
			_ = table.Append("Token", expiryText(state))

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

// sessionClient returns a client holding the saved session for the
// configured server.
func sessionClient() (pocketbase.Client, *SessionConfig, error) {
	config := loadConfig()

	switch {
	case config.Session == nil:
		return nil, nil, constants.ErrNotLoggedIn
	case config.Session.URL != config.URL:
		return nil, nil, fmt.Errorf("%w: %s", constants.ErrSessionMismatch, config.Session.URL)
	}

	client, err := CreateClient()
	if err != nil {
		return nil, nil, err
	}

	return client, config.Session, nil
}

func displayIdentity(record pocketbase.Record, fallback string) string {
	for _, key := range []string{"email", "username", "name"} {
		if value := record.GetString(key); value != "" {
			return value
		}
	}

	return fallback
}

func expiryText(state pocketbase.AuthState) string {
	exp, err := state.ExpiresAt()
	if err != nil {
		return "expiry unknown"
	}

	if state.IsValid() {
		return "expires " + humanize.Time(exp)
	}

	return "expired " + humanize.Time(exp)
}
