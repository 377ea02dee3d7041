package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/types"
)

func newScoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "score NAME [NAME...]",
		Short: "Score a team of catalog builds",
		Long:  "Looks each name up in the catalog, in order, and prints the full score breakdown of the resulting team. A name may repeat.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team := make(model.Team, 0, len(args))
			for _, name := range args {
				b, err := e.catalog.Lookup(name)
				if err != nil {
					return err
				}
				team = append(team, b)
			}

			res, err := e.svc.Score(cmd.Context(), team, e.scoring)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), types.NewSuggestion(1, team.Archetypes(), team.Labels(), res, true))
		},
	}
}
