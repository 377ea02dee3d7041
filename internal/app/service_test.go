package service_test

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/squadron/internal/app"
	"github.com/okian/squadron/internal/domain/job"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/search"
	"github.com/okian/squadron/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func pool() ([]model.Build, *scoring.Config) {
	builds := []model.Build{
		model.MustBuild("A", model.WithBuffs("quickness"), model.WithRoles("heal")),
		model.MustBuild("B", model.WithRoles("dps")),
		model.MustBuild("C", model.WithRoles("dps")),
		model.MustBuild("D"),
	}
	cfg := scoring.MustConfig(scoring.Weights{
		Version: "test",
		Buffs:   map[string]scoring.BuffWeight{"quickness": {Weight: 2}},
		Roles: map[string]scoring.RoleWeight{
			"heal": {Weight: 2, RequiredCount: 1},
			"dps":  {Weight: 1, RequiredCount: 2},
		},
		Duplicate: scoring.DefaultDuplicatePenalty(),
	})
	return builds, cfg
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["teams"], ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithScoreCacheSize(64),
			service.WithLeaderboardCapacity(10),
			service.WithLogger(logger.Nop()),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 16)
			So(stats["scoreCacheSize"], ShouldEqual, 64)
		})
	})
}

func TestService_ScoreAndSearch(t *testing.T) {
	Convey("Given a service and the reference pool", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		builds, cfg := pool()
		ctx := context.Background()

		Convey("When scoring a team directly", func() {
			res, err := svc.Score(ctx, model.Team{builds[0], builds[1], builds[2]}, cfg)

			Convey("Then the result matches the engine", func() {
				So(err, ShouldBeNil)
				So(res.TotalScore, ShouldAlmostEqual, 0.9, 1e-9)
			})
		})

		Convey("When searching exhaustively", func() {
			req := search.Request{TeamSize: 3, Candidates: builds, Config: cfg, TopN: 3}
			teams, err := svc.Search(ctx, search.StrategyExhaustive, search.Params{}, req)

			Convey("Then the best team is found and recorded", func() {
				So(err, ShouldBeNil)
				So(teams, ShouldNotBeEmpty)
				So(teams[0].Result.TotalScore, ShouldAlmostEqual, 0.9, 1e-9)

				top, err := svc.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Key, ShouldEqual, service.TeamKey(teams[0].Team))
				So(top[0].Strategy, ShouldEqual, search.StrategyExhaustive)
				So(top[0].Score, ShouldAlmostEqual, 0.9, 1e-9)

				entry, err := svc.Rank(ctx, top[0].Key)
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When the strategy is unknown", func() {
			req := search.Request{TeamSize: 3, Candidates: builds, Config: cfg}
			_, err := svc.Search(ctx, "annealing", search.Params{}, req)

			Convey("Then ErrUnknownStrategy is returned", func() {
				So(errors.Is(err, search.ErrUnknownStrategy), ShouldBeTrue)
			})
		})
	})
}

func TestService_TeamKey(t *testing.T) {
	Convey("Given two teams with the same builds in a different order", t, func() {
		builds, _ := pool()
		a := model.Team{builds[0], builds[1], builds[2]}
		b := model.Team{builds[2], builds[0], builds[1]}

		Convey("Then they share a leaderboard key", func() {
			So(service.TeamKey(a), ShouldEqual, service.TeamKey(b))
			So(service.TeamKey(a), ShouldHaveLength, 16)
			So(service.TeamKey(a), ShouldNotEqual, service.TeamKey(model.Team{builds[0], builds[1], builds[3]}))
		})
	})
}

func TestService_RunBatch(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithLogger(logger.Nop()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		builds, cfg := pool()
		good := search.Request{TeamSize: 3, Candidates: builds, Config: cfg, Seed: search.Seed(7)}
		tooBig := search.Request{TeamSize: 3, Candidates: builds[:2], Config: cfg}

		jobs := []job.Job{
			job.New("exhaustive", search.StrategyExhaustive, search.Params{}, good),
			job.New("short-pool", search.StrategyExhaustive, search.Params{}, tooBig),
			job.New("genetic", search.StrategyGenetic, search.Params{Population: 20, Generations: intPtr(5)}, good),
		}

		Convey("When a batch with one bad job runs", func() {
			outcomes, err := svc.RunBatch(ctx, jobs)

			Convey("Then outcomes come back in order and only the bad job fails", func() {
				So(err, ShouldBeNil)
				So(outcomes, ShouldHaveLength, 3)
				So(outcomes[0].Name, ShouldEqual, "exhaustive")
				So(outcomes[0].OK(), ShouldBeTrue)
				So(outcomes[1].Name, ShouldEqual, "short-pool")
				So(errors.Is(outcomes[1].Err, search.ErrInsufficientCandidates), ShouldBeTrue)
				So(outcomes[2].OK(), ShouldBeTrue)

				_, best, ok := outcomes[0].Best()
				So(ok, ShouldBeTrue)
				So(best.TotalScore, ShouldAlmostEqual, 0.9, 1e-9)
			})

			Convey("Then the leaderboard holds teams from the successful jobs", func() {
				top, err := svc.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Score, ShouldAlmostEqual, 0.9, 1e-9)
			})
		})

		Convey("When a batch repeats a job id", func() {
			outcomes, err := svc.RunBatch(ctx, []job.Job{jobs[0], jobs[0]})

			Convey("Then the repeat fails without running", func() {
				So(err, ShouldBeNil)
				So(outcomes[0].OK(), ShouldBeTrue)
				So(errors.Is(outcomes[1].Err, service.ErrDuplicateJob), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with one worker and a one-slot queue", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(1), service.WithLogger(logger.Nop()))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		builds, cfg := pool()
		slow := search.Request{TeamSize: 3, Candidates: builds, Config: cfg, Seed: search.Seed(11)}
		params := search.Params{Population: 200, Generations: intPtr(100)}
		var jobs []job.Job
		for i := 0; i < 10; i++ {
			j := job.New("slow", search.StrategyGenetic, params, slow)
			j.ID = "slow-" + strconv.Itoa(i)
			jobs = append(jobs, j)
		}
		jobs = append(jobs, jobs[len(jobs)-1])

		Convey("When more jobs arrive than the queue can hold", func() {
			outcomes, err := svc.RunBatch(ctx, jobs)

			Convey("Then overflow jobs fail with a full queue and their ids are released", func() {
				So(err, ShouldBeNil)
				So(outcomes, ShouldHaveLength, len(jobs))
				So(outcomes[0].OK(), ShouldBeTrue)
				rejected := 0
				for _, o := range outcomes {
					if errors.Is(o.Err, service.ErrQueueFull) {
						rejected++
					}
				}
				So(rejected, ShouldBeGreaterThan, 0)
				So(errors.Is(outcomes[len(outcomes)-1].Err, service.ErrDuplicateJob), ShouldBeFalse)
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then RunBatch refuses to run", func() {
			_, err := svc.RunBatch(context.Background(), nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func intPtr(v int) *int { return &v }
