package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/cli/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		return render(map[string]any{
			"path":      path,
			"token":     maskToken(cfg.Token),
			"server":    serverURL,
			"daemon":    daemonURL(),
			"page_size": cfg.PageSize,
		}, func() {
			out.Header("Configuration")
			out.KeyValue("Path", path)
			out.KeyValue("Token", maskToken(cfg.Token))
			out.KeyValue("Server", serverURL)
			out.KeyValue("Daemon", daemonURL())
			if cfg.PageSize > 0 {
				out.KeyValue("Page size", fmt.Sprint(cfg.PageSize))
			}
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <server|daemon> <url>",
	Short: "Set a server URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "server":
			cfg.Server = args[1]
		case "daemon":
			cfg.Daemon = args[1]
		default:
			return fmt.Errorf("unknown key %q", args[0])
		}
		if err := config.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		out.Success("%s set to %s", args[0], args[1])
		return nil
	},
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) < 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
