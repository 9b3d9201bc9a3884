package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/project"
	"github.com/inventhq/invent/internal/store/projects"
)

var tabNames = map[string]int{
	"initiatives": projects.TabInitiatives,
	"reviews":     projects.TabReviews,
	"favorites":   projects.TabFavorites,
}

var (
	listTab      string
	listPage     int
	listPageSize int

	editName     string
	editOverview string
	editCountry  int
	editOffice   int
	editStart    string
	editEnd      string
	editEmail    string
	editContact  string
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project", "p"},
	Short:   "Browse and edit projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your initiatives, reviews or favourites",
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, ok := tabNames[listTab]
		if !ok {
			return fmt.Errorf("unknown tab %q: use initiatives, reviews or favorites", listTab)
		}
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}

		ps := s.projects
		ps.RestorePageSize(ctx)
		ps.SetView(tab, listPage, 0)
		if listPageSize > 0 {
			err = ps.SetPageSize(ctx, listPageSize)
			if err == nil && listPage > 1 {
				err = ps.SetCurrentPage(ctx, listPage)
			}
		} else {
			err = ps.GetInitiatives(ctx, 0)
		}
		if err != nil {
			return err
		}

		items := ps.UserProjects()
		if items == nil {
			items = []projects.Item{}
		}
		return render(map[string]any{
			"tabs":      ps.Tabs(),
			"tab":       ps.Tab(),
			"page":      ps.CurrentPage(),
			"page_size": ps.PageSize(),
			"total":     ps.Total(),
			"items":     items,
		}, func() {
			printItems(s, items, tab == projects.TabReviews)
			out.Info("Page %d, %d of %d", ps.CurrentPage(), len(items), ps.Total())
		})
	},
}

func printItems(s *session, items []projects.Item, reviews bool) {
	countries := make(map[int]string)
	for _, c := range s.sys.Countries() {
		countries[c.ID] = c.Name
	}

	headers := []string{"ID", "NAME", "COUNTRY", "STATUS", "FAV"}
	if reviews {
		headers = []string{"REVIEW", "ID", "NAME", "PORTFOLIO", "STATUS"}
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		if reviews {
			rows = append(rows, []string{
				strconv.Itoa(it.ReviewID), strconv.Itoa(it.ID), it.Name,
				orDash(it.PortfolioName), orDash(it.ReviewStatus),
			})
			continue
		}
		country := "-"
		if it.Country != nil {
			country = orDash(countries[*it.Country])
		}
		status := "draft"
		if it.IsPublished {
			status = "published"
		}
		fav := ""
		if it.Favorite {
			fav = "★"
		}
		rows = append(rows, []string{strconv.Itoa(it.ID), it.Name, country, status, fav})
	}
	out.Table(headers, rows)
}

var projectsLandingCmd = &cobra.Command{
	Use:   "landing",
	Short: "Show recent and featured projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		if err := s.projects.LoadLandingProjects(ctx); err != nil {
			return err
		}
		landing := s.projects.LandingProjects()
		return render(landing, func() {
			section := func(title string, list []projects.LandingItem) {
				out.Header(title)
				rows := make([][]string, 0, len(list))
				for _, it := range list {
					rows = append(rows, []string{strconv.Itoa(it.ID), it.Name, placeName(it.Country), placeName(it.Office)})
				}
				out.Table([]string{"ID", "NAME", "COUNTRY", "OFFICE"}, rows)
			}
			section("My initiatives", landing.MyInitiatives)
			section("Recently updated", landing.Recents)
			section("Featured", landing.Featured)
		})
	},
}

func placeName(p *projects.Place) string {
	if p == nil {
		return "-"
	}
	return orDash(p.Name)
}

// loadEditor loads a project and the questions of its country.
func loadEditor(ctx context.Context, s *session, id int) (*project.Store, error) {
	pj := project.New(s.api, s.sys, s.projects, logger())
	if err := pj.LoadProject(ctx, id); err != nil {
		return nil, err
	}
	if err := loadCountry(ctx, s, pj); err != nil {
		return nil, err
	}
	return pj, nil
}

func loadCountry(ctx context.Context, s *session, pj *project.Store) error {
	if c := pj.Fields().Country; c != nil {
		return s.sys.LoadCountryDetails(ctx, *c)
	}
	return nil
}

func printProject(s *session, id int, pj *project.Store) error {
	country, err := pj.AllCountryAnswers()
	if err != nil {
		return err
	}
	donors, err := pj.AllDonorsAnswers()
	if err != nil {
		return err
	}
	f := pj.Fields()
	draft := domain.WriteParse(f, country, donors)

	var published *domain.WriteBody
	if p := pj.Published(); p != nil {
		body := domain.WriteParse(*p, p.CountryAnswers, p.DonorAnswers)
		published = &body
	}

	return render(map[string]any{
		"id":        id,
		"draft":     draft,
		"published": published,
		"team":      f.Team,
		"viewers":   f.Viewers,
		"donors":    pj.Donors(),
	}, func() {
		out.Header(fmt.Sprintf("%s (#%d)", orDash(f.Name), id))
		if f.Country != nil {
			if c, err := s.sys.CountryDetails(*f.Country); err == nil {
				out.KeyValue("Country", c.Name)
			}
		}
		out.KeyValue("Office", intOrDash(f.CountryOffice))
		out.KeyValue("Dates", orDash(f.StartDate)+" to "+orDash(f.EndDate))
		out.KeyValue("Contact", orDash(f.ContactName)+" <"+orDash(f.ContactEmail)+">")
		out.KeyValue("Team", fmt.Sprint(len(f.Team)))
		out.KeyValue("Viewers", fmt.Sprint(len(f.Viewers)))
		if published != nil {
			out.KeyValue("Published", published.Project.Name)
		} else {
			out.KeyValue("Published", "no")
		}
		if f.Overview != "" {
			out.Divider()
			fmt.Println(f.Overview)
		}
	})
}

func projectID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := projectID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		pj, err := loadEditor(ctx, s, id)
		if err != nil {
			return err
		}
		return printProject(s, id, pj)
	},
}

// edits collects the updates given on the command line.
func edits(cmd *cobra.Command) []project.Update {
	var updates []project.Update
	flags := cmd.Flags()
	if flags.Changed("name") {
		updates = append(updates, project.SetName(editName))
	}
	if flags.Changed("overview") {
		updates = append(updates, project.SetOverview(editOverview))
	}
	if flags.Changed("country") {
		updates = append(updates, project.SetCountry{Value: domain.IntPtr(editCountry)})
	}
	if flags.Changed("office") {
		updates = append(updates, project.SetCountryOffice{Value: domain.IntPtr(editOffice)})
	}
	if flags.Changed("start") {
		updates = append(updates, project.SetStartDate(editStart))
	}
	if flags.Changed("end") {
		updates = append(updates, project.SetEndDate(editEnd))
	}
	if flags.Changed("contact") {
		updates = append(updates, project.SetContactName(editContact))
	}
	if flags.Changed("email") {
		updates = append(updates, project.SetContactEmail(editEmail))
	}
	return updates
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&editName, "name", "", "project name")
	cmd.Flags().StringVar(&editOverview, "overview", "", "overview")
	cmd.Flags().IntVar(&editCountry, "country", 0, "country id")
	cmd.Flags().IntVar(&editOffice, "office", 0, "country office id")
	cmd.Flags().StringVar(&editStart, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&editEnd, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&editContact, "contact", "", "contact name")
	cmd.Flags().StringVar(&editEmail, "email", "", "contact email")
}

var projectsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a project draft",
	Long:  `Create a draft starting from your country and office defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("name") {
			return fmt.Errorf("--name is required")
		}
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}

		pj := project.New(s.api, s.sys, s.projects, logger())
		if err := pj.ResetProjectState(ctx); err != nil {
			return err
		}
		if err := pj.Apply(ctx, edits(cmd)...); err != nil {
			return err
		}
		id, err := pj.CreateProject(ctx)
		if err != nil {
			return err
		}
		if err := loadCountry(ctx, s, pj); err != nil {
			return err
		}
		out.Success("Created project %d", id)
		return printProject(s, id, pj)
	},
}

var projectsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a project draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAction(cmd, args[0], "draft")
	},
}

// projectAction runs one of the draft, publish, unpublish, latest and
// discard actions. draft and publish apply the edit flags first.
func projectAction(cmd *cobra.Command, arg, action string) error {
	id, err := projectID(arg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	pj := project.New(s.api, s.sys, s.projects, logger())
	if err := pj.LoadProject(ctx, id); err != nil {
		return err
	}

	switch action {
	case "draft", "publish":
		if err := pj.Apply(ctx, edits(cmd)...); err != nil {
			return err
		}
	}

	switch action {
	case "draft":
		err = pj.SaveDraft(ctx, id)
	case "publish":
		err = pj.PublishProject(ctx, id)
	case "unpublish":
		err = pj.UnpublishProject(ctx, id)
	case "latest":
		err = pj.LatestProject(ctx, id)
	case "discard":
		err = pj.DiscardDraft(ctx, id)
	default:
		err = fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		if fe, ok := project.IsFieldError(err); ok {
			return fmt.Errorf("%s: %s", fe.Field, fe.Message)
		}
		return err
	}
	if err := loadCountry(ctx, s, pj); err != nil {
		return err
	}
	out.Success("Project %d: %s done", id, action)
	return printProject(s, id, pj)
}

func actionCmd(action, short string, edit bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return projectAction(cmd, args[0], action)
		},
	}
	if edit {
		addEditFlags(cmd)
	}
	return cmd
}

var projectsSnapshotCmd = &cobra.Command{
	Use:   "snapshot <id>",
	Short: "Record a new version of the project history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := projectID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		ps := s.projects
		if err := ps.SetCurrentProject(ctx, id); err != nil {
			return err
		}
		if err := ps.SnapshotProject(ctx); err != nil {
			return err
		}
		toolkit, coverage := ps.ToolkitVersions(), ps.CoverageVersions()
		return render(map[string]any{
			"toolkit_versions":  toolkit,
			"coverage_versions": coverage,
		}, func() {
			out.Success("Snapshot recorded")
			out.KeyValue("Toolkit versions", fmt.Sprint(len(toolkit)))
			out.KeyValue("Coverage versions", fmt.Sprint(len(coverage)))
		})
	},
}

var chartScores string

var projectsChartCmd = &cobra.Command{
	Use:     "charts <id> <axis|domains|coverage>",
	Aliases: []string{"chart"},
	Short:   "Print the chart data of a project",
	Long: `Print the chart data of a project. With --scores, the toolkit scores in
the file (a JSON list of axis scores, "-" for stdin) are charted as today's
point after the recorded history.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"axis", "domains", "coverage"},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := projectID(args[0])
		if err != nil {
			return err
		}
		kind := args[1]
		switch kind {
		case "axis", "domains", "coverage":
		default:
			return fmt.Errorf("unknown chart %q", kind)
		}
		live, err := readScores(chartScores)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		ps := s.projects
		if err := ps.SetCurrentProject(ctx, id); err != nil {
			return err
		}

		// charts are data; text mode prints them as JSON too
		switch kind {
		case "axis":
			return out.JSON(ps.MapsAxisData(live))
		case "domains":
			return out.JSON(ps.MapsDomainData(live))
		}
		env, ok := ps.UserProject(id)
		if !ok {
			env, err = s.api.Project(ctx, id)
			if err != nil {
				return err
			}
		}
		return out.JSON(ps.CoverageChart(env))
	},
}

// readScores reads live toolkit scores, none when path is empty.
func readScores(path string) ([]domain.AxisScore, error) {
	if path == "" {
		return nil, nil
	}
	var scores []domain.AxisScore
	if err := decodeFile(path, &scores); err != nil {
		return nil, fmt.Errorf("invalid scores: %w", err)
	}
	return scores, nil
}

func init() {
	projectsChartCmd.Flags().StringVar(&chartScores, "scores", "", "JSON file of live toolkit scores, - for stdin")
	projectsListCmd.Flags().StringVar(&listTab, "tab", "initiatives", "initiatives, reviews or favorites")
	projectsListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	projectsListCmd.Flags().IntVar(&listPageSize, "page-size", 0, "page size, saved for later runs")

	addEditFlags(projectsNewCmd)
	addEditFlags(projectsEditCmd)

	projectsCmd.AddCommand(
		projectsListCmd,
		projectsLandingCmd,
		projectsShowCmd,
		projectsNewCmd,
		projectsEditCmd,
		actionCmd("publish", "Publish a project", true),
		actionCmd("unpublish", "Unpublish a project", false),
		actionCmd("latest", "Publish the project again as the latest version", false),
		actionCmd("discard", "Discard the draft and go back to the published version", false),
		projectsSnapshotCmd,
		projectsChartCmd,
	)
	rootCmd.AddCommand(projectsCmd)
}
