package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/config"
	"github.com/okian/squadron/internal/domain/job"
	"github.com/okian/squadron/internal/domain/search"
	"github.com/okian/squadron/internal/domain/types"
)

type jobOutput struct {
	Name       string             `json:"name"`
	Strategy   string             `json:"strategy"`
	Candidates int                `json:"candidates"`
	Error      string             `json:"error,omitempty"`
	DurationMS int64              `json:"duration_ms"`
	Teams      []types.Suggestion `json:"teams,omitempty"`
}

type batchOutput struct {
	Jobs        []jobOutput   `json:"jobs"`
	Leaderboard []types.Entry `json:"leaderboard"`
}

func newBatchCmd(e *env) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run every job from the config file on the worker pool",
		Long:  "Runs the configured jobs concurrently. A failing job is reported in its own entry and does not stop the others. The combined leaderboard ranks every distinct team found.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if len(e.cfg.Jobs) == 0 {
				return fmt.Errorf("%w: no jobs configured", config.ErrInvalidConfig)
			}

			// Jobs whose filters match nothing are reported without running;
			// the rest of the batch is unaffected.
			out := batchOutput{Jobs: make([]jobOutput, len(e.cfg.Jobs))}
			var (
				jobs  []job.Job
				slots []int
			)
			for i, jc := range e.cfg.Jobs {
				jc = e.cfg.Resolve(jc)
				out.Jobs[i] = jobOutput{Name: jc.Name, Strategy: jc.Strategy}
				pool, err := e.catalog.Filter(jc.Playstyle, jc.Archetypes)
				if err != nil {
					out.Jobs[i].Error = fmt.Errorf("job %s: %w", jc.Name, err).Error()
					continue
				}
				out.Jobs[i].Candidates = len(pool)
				jobs = append(jobs, job.New(jc.Name, jc.Strategy, jc.Params(), search.Request{
					TeamSize:   jc.TeamSize,
					Candidates: pool,
					Config:     e.scoring,
					Seed:       jc.Seed,
					TopN:       jc.TopN,
				}))
				slots = append(slots, i)
			}

			if err := e.svc.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = e.svc.Stop(stopCtx)
			}()

			outcomes, err := e.svc.RunBatch(ctx, jobs)
			if err != nil {
				return err
			}

			for k, o := range outcomes {
				jo := &out.Jobs[slots[k]]
				jo.Strategy = o.Strategy
				jo.DurationMS = o.Duration.Round(time.Millisecond).Milliseconds()
				jo.Teams = types.Suggestions(o.Teams, false)
				if o.Err != nil {
					jo.Error = o.Err.Error()
				}
			}

			out.Leaderboard, err = e.svc.TopN(ctx, top)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Leaderboard size")
	return cmd
}
