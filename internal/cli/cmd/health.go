package cmd

import (
	"github.com/spf13/cobra"

	"github.com/inventhq/invent/pkg/client"
)

const defaultDaemon = "http://localhost:8080"

func daemonURL() string {
	if cfg.Daemon != "" {
		return cfg.Daemon
	}
	return defaultDaemon
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check inventd health",
	Long:  `Check the health and readiness of the inventd daemon.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New("", client.WithServer(daemonURL()))

		health, err := c.Health(cmd.Context())
		if err != nil {
			if out.JSONMode() {
				return out.JSON(map[string]any{
					"status": "error",
					"error":  err.Error(),
				})
			}
			out.Error("Server unreachable: %v", err)
			return err
		}
		readyErr := c.Ready(cmd.Context())

		if out.JSONMode() {
			return out.JSON(map[string]any{
				"status":  health.Status,
				"version": health.Version,
				"ready":   readyErr == nil,
			})
		}

		out.Success("Server is healthy")
		out.KeyValue("Status", health.Status)
		if health.Version != "" {
			out.KeyValue("Version", health.Version)
		}
		if readyErr != nil {
			out.Warn("Not ready: %v", readyErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
