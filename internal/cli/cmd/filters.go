package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/store/filters"
)

var filtersCmd = &cobra.Command{
	Use:     "filters",
	Aliases: []string{"filter"},
	Short:   "Manage saved search filters",
}

func loadFilters(ctx context.Context) (*session, *filters.Store, error) {
	s, err := newSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	fs := filters.New(s.api, s.sys, &filters.Views{}, logger())
	if err := fs.Load(ctx); err != nil {
		return nil, nil, err
	}
	return s, fs, nil
}

func printFilters(fs *filters.Store) error {
	list := fs.Filters()
	if list == nil {
		list = []filters.SavedFilter{}
	}
	return render(list, func() {
		rows := make([][]string, 0, len(list))
		for _, f := range list {
			rows = append(rows, []string{f.Name, f.Query})
		}
		out.Table([]string{"NAME", "QUERY"}, rows)
	})
}

// normalizeQuery checks a search query and renders it in canonical form.
func normalizeQuery(raw string) (string, filters.SearchParameters, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return "", filters.SearchParameters{}, fmt.Errorf("invalid query: %w", err)
	}
	p, err := filters.ParseSearchParameters(q)
	if err != nil {
		return "", filters.SearchParameters{}, err
	}
	return p.Values().Encode(), p, nil
}

var filtersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fs, err := loadFilters(cmd.Context())
		if err != nil {
			return err
		}
		return printFilters(fs)
	},
}

var filtersSaveCmd = &cobra.Command{
	Use:   "save <name> <query>",
	Short: "Save a search query under a name",
	Example: `  invent filters save kenya-dhis2 "country=1&sw=6"
  invent filters save learning "goal=22&q=chatbot"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _, err := normalizeQuery(args[1])
		if err != nil {
			return err
		}
		_, fs, err := loadFilters(cmd.Context())
		if err != nil {
			return err
		}
		if err := fs.Save(cmd.Context(), args[0], query); err != nil {
			return err
		}
		out.Success("Filter %q saved", strings.TrimSpace(args[0]))
		return printFilters(fs)
	},
}

var filtersDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved filter",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fs, err := loadFilters(cmd.Context())
		if err != nil {
			return err
		}
		if err := fs.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		out.Success("Filter %q deleted", args[0])
		return printFilters(fs)
	},
}

var searchFilter string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the inventory",
	Long:  `Search the inventory with a query such as "country=1&goal=22", or with a saved filter.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		raw := ""
		if len(args) == 1 {
			raw = args[0]
		}
		if searchFilter != "" {
			_, fs, err := loadFilters(ctx)
			if err != nil {
				return err
			}
			found := false
			for _, f := range fs.Filters() {
				if f.Name == searchFilter {
					raw, found = f.Query, true
					break
				}
			}
			if !found {
				return fmt.Errorf("no saved filter named %q", searchFilter)
			}
		}

		_, p, err := normalizeQuery(raw)
		if err != nil {
			return err
		}
		if cfg.Token == "" {
			return errSignedOut
		}
		result, err := getClient().Search(ctx, p.Values())
		if err != nil {
			return err
		}
		return render(result, func() {
			rows := make([][]string, 0, len(result.Results))
			for _, r := range result.Results {
				rows = append(rows, []string{fmt.Sprint(r["id"]), fmt.Sprint(r["name"])})
			}
			out.Table([]string{"ID", "NAME"}, rows)
			out.Info("%d found", result.Count)
		})
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchFilter, "filter", "f", "", "use a saved filter")

	filtersCmd.AddCommand(filtersListCmd, filtersSaveCmd, filtersDeleteCmd)
	rootCmd.AddCommand(filtersCmd, searchCmd)
}
