package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

func (a *app) leaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Leaderboard standings and scores",
	}

	cmd.AddCommand(a.lbTopCmd())
	cmd.AddCommand(a.lbScoreCmd())
	cmd.AddCommand(a.lbAroundCmd())
	cmd.AddCommand(a.lbSetCmd())
	cmd.AddCommand(a.lbRemoveCmd())

	return cmd
}

func (a *app) lbTopCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top of the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lb, err := a.cl.Leaderboard.Top(cmd.Context(), top)
			if err != nil {
				return err
			}
			return a.print(lb)
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 10, "entries to show (1..100)")

	return cmd
}

func (a *app) lbScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [USER]",
		Short: "Show a user's score and rank (default: current user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.cl.Leaderboard.UserScore(cmd.Context(), a.userArg(cmd, args))
			if err != nil {
				return err
			}
			return a.print(s)
		},
	}
}

func (a *app) lbAroundCmd() *cobra.Command {
	var rangeSize int

	cmd := &cobra.Command{
		Use:   "around [USER]",
		Short: "Show entries around a user (default: current user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.cl.Leaderboard.Around(cmd.Context(), a.userArg(cmd, args), rangeSize)
			if err != nil {
				return err
			}
			return a.print(entries)
		},
	}

	cmd.Flags().IntVar(&rangeSize, "range", 5, "entries above and below (1..20)")

	return cmd
}

func (a *app) lbSetCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "set SCORE",
		Short: "Set the current user's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("score %q is not an integer", args[0])
			}

			var data *models.UserData
			if name != "" || email != "" {
				data = &models.UserData{Name: name, Email: email}
			}

			user := a.cl.CurrentUserID(cmd.Context())
			if err := a.cl.Leaderboard.UpdateScore(cmd.Context(), user, score, data); err != nil {
				return err
			}

			return a.message("score of %s set to %d", user, score)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "display email")

	return cmd
}

func (a *app) lbRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the current user from the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := a.cl.CurrentUserID(cmd.Context())
			if err := a.cl.Leaderboard.Remove(cmd.Context(), user); err != nil {
				return err
			}
			return a.message("%s removed from leaderboard", user)
		},
	}
}
