package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/soapdemo/pkg/cli/internal/output"
	"github.com/getmockd/soapdemo/pkg/soap"
	"github.com/getmockd/soapdemo/pkg/users"
)

// EnvURL sets the default --url for the call commands.
const EnvURL = "SOAPDEMO_URL"

var (
	callURL      string
	callTimeout  time.Duration
	callUsername string
	callEmail    string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a running soapdemo service",
	Long: `Send SOAP requests to a running service and print the decoded result.
A SOAP fault is reported as an error and a non-zero exit status.`,
}

var callRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a user",
	Long: `Register a user through RegisterUser.

The service stores values as they appear on the wire and does not decode XML
entities. Values containing &, <, >, " or ' are therefore stored
entity-escaped: --username 'a&b' is registered as a&amp;b.`,
	Example: `  soapdemo call register --username jane --email jane@example.com
  soapdemo call register   # prompts for the missing fields`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Use huh interactive forms if attributes are missing
		if !cmd.Flags().Changed("username") || !cmd.Flags().Changed("email") {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Username").
						Placeholder("john_doe").
						Value(&callUsername).
						Validate(required("username")),
					huh.NewInput().
						Title("Email").
						Placeholder("john@example.com").
						Value(&callEmail).
						Validate(required("email")),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
		}

		u, err := newClient().RegisterUser(cmd.Context(), callUsername, callEmail)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd, u)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered user %d (%s)\n", u.ID, u.Username)
		return nil
	},
}

// UsersOutput is the JSON form of call list.
type UsersOutput struct {
	Users      []users.User `json:"users"`
	TotalCount int          `json:"totalCount"`
}

var callListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, total, err := newClient().GetUsers(cmd.Context())
		if err != nil {
			return err
		}
		if list == nil {
			list = []users.User{}
		}
		if jsonOutput {
			return outputJSON(cmd, UsersOutput{Users: list, TotalCount: total})
		}
		if total == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No users registered")
			return nil
		}
		return output.Users(cmd.OutOrStdout(), list)
	},
}

var callGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a user by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q: must be an integer", args[0])
		}
		u, err := newClient().GetUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd, u)
		}
		return output.Users(cmd.OutOrStdout(), []users.User{u})
	},
}

func newClient() *soap.Client {
	return soap.NewClient(callURL, &http.Client{Timeout: callTimeout})
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func defaultCallURL() string {
	if u := os.Getenv(EnvURL); u != "" {
		return u
	}
	return "http://localhost:8787"
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.AddCommand(callRegisterCmd)
	callCmd.AddCommand(callListCmd)
	callCmd.AddCommand(callGetCmd)

	callCmd.PersistentFlags().StringVar(&callURL, "url", defaultCallURL(), "Service base URL (env: "+EnvURL+")")
	callCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 30*time.Second, "Request timeout")

	callRegisterCmd.Flags().StringVar(&callUsername, "username", "", "Username to register")
	callRegisterCmd.Flags().StringVar(&callEmail, "email", "", "Email address")
}
