package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/domain/search"
	"github.com/okian/squadron/internal/domain/types"
	"github.com/okian/squadron/pkg/logger"
)

type searchOutput struct {
	Strategy   string             `json:"strategy"`
	TeamSize   int                `json:"team_size"`
	Candidates int                `json:"candidates"`
	Seed       *int64             `json:"seed,omitempty"`
	Weights    string             `json:"weights_version"`
	Teams      []types.Suggestion `json:"teams"`
}

func newSearchCmd(e *env) *cobra.Command {
	var (
		strategy   string
		teamSize   int
		topN       int
		seed       int64
		playstyle  string
		archetypes []string
		details    bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog for the best teams",
		Long:  "Filters the catalog by playstyle and archetype, then runs the exhaustive or genetic strategy and prints the ranked teams as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			if !flags.Changed("strategy") {
				strategy = e.cfg.Strategy
			}
			if !flags.Changed("team-size") {
				teamSize = e.cfg.TeamSize
			}
			if !flags.Changed("playstyle") {
				playstyle = e.cfg.Playstyle
			}
			if !flags.Changed("archetype") {
				archetypes = e.cfg.Archetypes
			}
			params := e.cfg.Params()
			if flags.Changed("top") {
				params.TopN = topN
			}

			candidates, err := e.catalog.Filter(playstyle, archetypes)
			if err != nil {
				return err
			}

			req := search.Request{
				TeamSize:   teamSize,
				Candidates: candidates,
				Config:     e.scoring,
				Seed:       e.cfg.Seed,
				TopN:       params.TopN,
			}
			if flags.Changed("seed") {
				req.Seed = search.Seed(seed)
			}
			if req.Seed == nil && isGenetic(strategy) {
				// Drawn here so the seed can be printed and the run repeated.
				s, err := search.NewSeed()
				if err != nil {
					return err
				}
				req.Seed = search.Seed(s)
			}

			start := time.Now()
			teams, err := e.svc.Search(ctx, strategy, params, req)
			if err != nil {
				return err
			}
			e.log.Info(ctx, "search finished",
				logger.String("strategy", strategy),
				logger.Int("candidates", len(candidates)),
				logger.Int("teams", len(teams)),
				logger.Duration("took", time.Since(start)),
			)

			return writeJSON(cmd.OutOrStdout(), searchOutput{
				Strategy:   strategy,
				TeamSize:   teamSize,
				Candidates: len(candidates),
				Seed:       req.Seed,
				Weights:    e.scoring.Version(),
				Teams:      types.Suggestions(teams, details),
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&strategy, "strategy", "s", search.StrategyGenetic, "Search strategy: exhaustive, sampling or genetic")
	f.IntVarP(&teamSize, "team-size", "n", 10, "Number of builds per team")
	f.IntVar(&topN, "top", 5, "Number of teams to return")
	f.Int64Var(&seed, "seed", 0, "Random seed for reproducible genetic runs")
	f.StringVarP(&playstyle, "playstyle", "p", "", "Keep builds supporting this playstyle")
	f.StringSliceVarP(&archetypes, "archetype", "a", nil, "Allowed archetypes (repeatable)")
	f.BoolVar(&details, "details", false, "Include the full score breakdown")
	return cmd
}

func isGenetic(strategy string) bool {
	return strings.EqualFold(strings.TrimSpace(strategy), search.StrategyGenetic)
}
