package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/store/projects"
	"github.com/inventhq/invent/pkg/client"
)

var reviewFile string

var reviewCmd = &cobra.Command{
	Use:   "review <review-id>",
	Short: "Submit a project review",
	Long: `Submit the answers of a review questionnaire. The answers are read as
JSON from --file, or from stdin when the file is "-".`,
	Example: `  echo '{"rnci": 2, "ra": 3, "overall_reviewer_feedback": "Solid"}' | invent review 12 -f -`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewID, err := strconv.Atoi(args[0])
		if err != nil || reviewID <= 0 {
			return fmt.Errorf("invalid review id %q", args[0])
		}

		var score client.ReviewScore
		if err := decodeFile(reviewFile, &score); err != nil {
			return fmt.Errorf("invalid review answers: %w", err)
		}

		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		ps := s.projects
		ps.RestorePageSize(ctx)
		if err := ps.AddReview(ctx, reviewID, score); err != nil {
			return err
		}
		return render(map[string]any{"review": reviewID, "reviews_pending": pending(ps.Tabs())}, func() {
			out.Success("Review %d submitted", reviewID)
			out.KeyValue("Reviews pending", fmt.Sprint(pending(ps.Tabs())))
		})
	},
}

// decodeFile decodes JSON from path, or from stdin when path is "-".
func decodeFile(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(v)
}

func pending(tabs []projects.Tab) int {
	for _, t := range tabs {
		if t.ID == projects.TabReviews {
			return t.Total
		}
	}
	return 0
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewFile, "file", "f", "-", "JSON answers file, - for stdin")
	rootCmd.AddCommand(reviewCmd)
}
