package cmd

import (
	"github.com/spf13/cobra"

	"github.com/inventhq/invent/internal/store/projects"
)

var favoriteCmd = &cobra.Command{
	Use:     "favorite",
	Aliases: []string{"fav"},
	Short:   "Mark or unmark favourite projects",
}

func favoriteRun(favorite bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := projectID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		if favorite {
			err = s.projects.AddFavorite(ctx, id, projects.FavoriteFromDetail)
		} else {
			err = s.projects.RemoveFavorite(ctx, id, projects.FavoriteFromDetail)
		}
		if err != nil {
			return err
		}
		return render(map[string]any{"id": id, "favorite": favorite}, func() {
			if favorite {
				out.Success("Project %d added to favourites", id)
			} else {
				out.Success("Project %d removed from favourites", id)
			}
		})
	}
}

var favoriteAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Add a project to your favourites",
	Args:  cobra.ExactArgs(1),
	RunE:  favoriteRun(true),
}

var favoriteRemoveCmd = &cobra.Command{
	Use:     "remove <project-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a project from your favourites",
	Args:    cobra.ExactArgs(1),
	RunE:    favoriteRun(false),
}

func init() {
	favoriteCmd.AddCommand(favoriteAddCmd, favoriteRemoveCmd)
	rootCmd.AddCommand(favoriteCmd)
}
