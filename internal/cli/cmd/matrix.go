package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/store/matrixes"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix <portfolio-id>",
	Short: "Show the matrices of a portfolio",
	Long:  `Show the ambition, risk/impact and problem statement matrices of a portfolio.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid portfolio id %q", args[0])
		}
		if cfg.Token == "" {
			return errSignedOut
		}

		ms := matrixes.New(getClient(), logger())
		if err := ms.Load(cmd.Context(), id); err != nil {
			return err
		}
		ambition, err := ms.AmbitionMatrix()
		if err != nil {
			return err
		}
		riskImpact, err := ms.RiskImpactMatrix()
		if err != nil {
			return err
		}
		statements, err := ms.ProblemStatementMatrix(nil)
		if err != nil {
			return err
		}

		return render(map[string]any{
			"portfolio":          id,
			"ambition":           ambition,
			"risk_impact":        riskImpact,
			"problem_statements": statements,
		}, func() {
			printBuckets("Ambition", ambition)
			printBuckets("Risk / impact", riskImpact)
			out.Header("Problem statements")
			for _, group := range []struct {
				name string
				list []matrixes.Statement
			}{
				{"neglected", statements.Neglected},
				{"moderate", statements.Moderate},
				{"high activity", statements.HighActivity},
			} {
				titles := make([]string, 0, len(group.list))
				for _, s := range group.list {
					titles = append(titles, s.Title)
				}
				out.KeyValue(group.name, orDash(strings.Join(titles, ", ")))
			}
		})
	},
}

func printBuckets(title string, buckets []matrixes.Bucket) {
	out.Header(title)
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Projects) == 0 {
			continue
		}
		names := make([]string, 0, len(b.Projects))
		for _, p := range b.Projects {
			names = append(names, p.Title)
		}
		rows = append(rows, []string{
			strconv.Itoa(b.X), strconv.Itoa(b.Y),
			strconv.FormatFloat(b.Ratio, 'f', 2, 64),
			strings.Join(names, ", "),
		})
	}
	out.Table([]string{"X", "Y", "RATIO", "PROJECTS"}, rows)
}

func init() {
	rootCmd.AddCommand(matrixCmd)
}
