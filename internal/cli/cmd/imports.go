package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/store/project"
)

var (
	importHeaders string
	outputFile    string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import projects from a CSV sheet",
}

// mapping returns the column mapping with the --headers overrides.
func mapping() (importer.Mapping, error) {
	if importHeaders == "" {
		return importer.NameMapping, nil
	}
	overrides, err := importer.LoadOverrides(importHeaders)
	if err != nil {
		return nil, err
	}
	return importer.NameMapping.WithOverrides(overrides)
}

// outputWriter opens --output, stdout when it is empty or "-".
func outputWriter() (io.WriteCloser, error) {
	if outputFile == "" || outputFile == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outputFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

var importTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the example import sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := mapping()
		if err != nil {
			return err
		}
		w, err := outputWriter()
		if err != nil {
			return err
		}
		if err := importer.WriteTemplate(w, m); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	},
}

// parseSheet reads a sheet against the taxonomy of the server.
func parseSheet(ctx context.Context, path string) ([]importer.Row, []importer.RowError, error) {
	if cfg.Token == "" {
		return nil, nil, errSignedOut
	}
	m, err := mapping()
	if err != nil {
		return nil, nil, err
	}
	structure, err := getClient().Structure(ctx)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return importer.ParseCSV(f, structure, m)
}

func printRowErrors(rowErrs []importer.RowError) {
	rows := make([][]string, 0, len(rowErrs))
	for _, e := range rowErrs {
		rows = append(rows, []string{strconv.Itoa(e.Line), e.Column, e.Value, e.Message})
	}
	out.Table([]string{"LINE", "COLUMN", "VALUE", "ERROR"}, rows)
}

var importValidateCmd = &cobra.Command{
	Use:   "validate <sheet.csv>",
	Short: "Check a sheet without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, rowErrs, err := parseSheet(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rowErrs == nil {
			rowErrs = []importer.RowError{}
		}
		valid := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			valid = append(valid, map[string]any{
				"line":         row.Line,
				"project":      domain.WriteParse(row.Project, nil, nil).Project,
				"field_office": row.FieldOffice,
			})
		}
		return render(map[string]any{"rows": valid, "errors": rowErrs}, func() {
			if len(rowErrs) > 0 {
				printRowErrors(rowErrs)
				out.Warn("%d rows valid, %d problems", len(rows), len(rowErrs))
				return
			}
			out.Success("%d rows valid", len(rows))
		})
	},
}

var importRunCmd = &cobra.Command{
	Use:   "run <sheet.csv>",
	Short: "Create a draft for every valid row of a sheet",
	Long: `Create a draft for every valid row of a sheet. Rows with problems are
reported and skipped. Country and office default to your own when the
sheet leaves them out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rows, rowErrs, err := parseSheet(ctx, args[0])
		if err != nil {
			return err
		}
		s, err := newSession(ctx)
		if err != nil {
			return err
		}

		type created struct {
			Line int    `json:"line"`
			ID   int    `json:"id,omitempty"`
			Name string `json:"name"`
			Err  string `json:"error,omitempty"`
		}
		results := make([]created, 0, len(rows))
		for _, row := range rows {
			pj := project.New(s.api, s.sys, s.projects, logger())
			if err := pj.ResetProjectState(ctx); err != nil {
				return err
			}
			defaults := pj.Fields()
			f := row.Project
			f.Country = defaults.Country
			f.CountryOffice = defaults.CountryOffice
			if row.FieldOffice != nil {
				f.CountryOffice = row.FieldOffice
			}
			pj.InitProjectState(f)

			id, err := pj.CreateProject(ctx)
			res := created{Line: row.Line, ID: id, Name: f.Name}
			if err != nil {
				res.Err = err.Error()
			}
			results = append(results, res)
		}

		if rowErrs == nil {
			rowErrs = []importer.RowError{}
		}
		return render(map[string]any{"created": results, "errors": rowErrs}, func() {
			table := make([][]string, 0, len(results))
			for _, r := range results {
				status := strconv.Itoa(r.ID)
				if r.Err != "" {
					status = "failed: " + r.Err
				}
				table = append(table, []string{strconv.Itoa(r.Line), r.Name, status})
			}
			out.Table([]string{"LINE", "NAME", "DRAFT"}, table)
			if len(rowErrs) > 0 {
				printRowErrors(rowErrs)
			}
			ok := 0
			for _, r := range results {
				if r.Err == "" {
					ok++
				}
			}
			out.Info("%d drafts created, %d rows skipped", ok, len(rowErrs))
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <project-id>...",
	Short: "Export projects as a CSV sheet",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int, 0, len(args))
		for _, a := range args {
			id, err := projectID(a)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if cfg.Token == "" {
			return errSignedOut
		}
		m, err := mapping()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		api := getClient()
		structure, err := api.Structure(ctx)
		if err != nil {
			return err
		}
		list := make([]domain.ProjectFields, 0, len(ids))
		for _, id := range ids {
			env, err := api.Project(ctx, id)
			if err != nil {
				return fmt.Errorf("project %d: %w", id, err)
			}
			list = append(list, domain.ReadParse(env.Visible()))
		}

		w, err := outputWriter()
		if err != nil {
			return err
		}
		if err := importer.ExportCSV(w, list, structure, m); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	},
}

func init() {
	importCmd.PersistentFlags().StringVar(&importHeaders, "headers", "", "YAML file overriding column headers")
	importTemplateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&importHeaders, "headers", "", "YAML file overriding column headers")

	importCmd.AddCommand(importTemplateCmd, importValidateCmd, importRunCmd)
	rootCmd.AddCommand(importCmd, exportCmd)
}
