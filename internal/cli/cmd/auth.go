package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/cli/config"
)

var (
	loginPath     string
	passwordStdin bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the API token",
}

var authLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and save an API token",
	Long: `Exchange a username and password for an API token and save it to the
config file. The password is read from INVENT_PASSWORD, or from the first
line of stdin with --password-stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}

		resp, err := getClient().Login(cmd.Context(), loginPath, args[0], password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Token = resp.Token
		cfg.Server = serverURL
		if err := config.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		return render(map[string]any{"user_profile_id": resp.UserProfileID, "server": serverURL}, func() {
			out.Success("Signed in to %s", serverURL)
			out.KeyValue("Profile", fmt.Sprint(resp.UserProfileID))
		})
	},
}

var authTokenCmd = &cobra.Command{
	Use:   "token <token>",
	Short: "Save an existing API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Token = strings.TrimSpace(args[0])
		if cfg.Token == "" {
			return errors.New("token is empty")
		}
		if serverURL != "" {
			cfg.Server = serverURL
		}
		if err := config.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		out.Success("Token saved")
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Token = ""
		if err := config.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		out.Success("Signed out")
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Token == "" {
			return errSignedOut
		}
		p, err := getClient().Me(cmd.Context())
		if err != nil {
			return err
		}
		return render(p, func() {
			out.Header(orDash(p.Name))
			out.KeyValue("Profile", fmt.Sprint(p.ID))
			out.KeyValue("Email", orDash(p.Email))
			out.KeyValue("Country", intOrDash(p.Country))
			out.KeyValue("Office", intOrDash(p.CountryOffice))
		})
	},
}

func readPassword() (string, error) {
	if passwordStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if p := os.Getenv("INVENT_PASSWORD"); p != "" {
		return p, nil
	}
	return "", errors.New("no password: set INVENT_PASSWORD or use --password-stdin")
}

func init() {
	authLoginCmd.Flags().StringVar(&loginPath, "login-path", "", "token endpoint path (default /api/api-token-auth/)")
	authLoginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	authCmd.AddCommand(authLoginCmd, authTokenCmd, authLogoutCmd, authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}
