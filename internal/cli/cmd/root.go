package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/cli/config"
	"github.com/inventhq/invent/internal/cli/output"
	"github.com/inventhq/invent/internal/store/projects"
	"github.com/inventhq/invent/internal/store/system"
	"github.com/inventhq/invent/pkg/client"
)

var (
	cfgFile    string
	serverURL  string
	jsonOutput bool
	jqFilter   string
	verbose    bool
	cfg        *config.Config
	out        *output.Output
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "invent",
	Short:         "CLI for the INVENT project portfolio",
	Long:          `invent is a command-line tool for browsing and editing projects on an INVENT server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		out = output.New(jsonOutput)
		if err := out.SetFilter(jqFilter); err != nil {
			return err
		}

		// Load config (ignore errors for commands that don't need it)
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			cfg = &config.Config{}
		}

		// Server URL priority: flag > config > default
		if serverURL == "" && cfg.Server != "" {
			serverURL = cfg.Server
		}
		if serverURL == "" {
			serverURL = client.DefaultServer
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if out != nil && !out.JSONMode() {
			out.Error("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.invent/config.json)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "INVENT server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&jqFilter, "jq", "", "filter JSON output with a jq expression")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log API failures to stderr")
}

// getClient creates a client with current config.
func getClient() *client.Client {
	return client.New(cfg.Token, client.WithServer(serverURL))
}

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var errSignedOut = errors.New("not signed in, run `invent auth login` first")

// session holds the stores of one command run.
type session struct {
	api      *client.Client
	sys      *system.Store
	projects *projects.Store
}

// newSession loads the reference data and the profile of the signed-in
// user.
func newSession(ctx context.Context) (*session, error) {
	if cfg.Token == "" {
		return nil, errSignedOut
	}
	api := getClient()
	log := logger()

	sys := system.New(api, log)
	if err := sys.Load(ctx); err != nil {
		return nil, err
	}
	if err := sys.RefreshProfile(ctx); err != nil {
		return nil, err
	}
	ps := projects.New(api, sys, configPrefs{}, projects.WithLogger(log))
	return &session{api: api, sys: sys, projects: ps}, nil
}

// configPrefs keeps the initiatives page size in the config file.
type configPrefs struct{}

func (configPrefs) PageSize(context.Context, string) (int, bool, error) {
	return cfg.PageSize, cfg.PageSize > 0, nil
}

func (configPrefs) SetPageSize(_ context.Context, _ string, size int) error {
	cfg.PageSize = size
	return config.Save(cfg, cfgFile)
}

// render prints data as JSON in JSON mode and calls text otherwise.
func render(data any, text func()) error {
	if out.JSONMode() {
		return out.JSON(data)
	}
	text()
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
