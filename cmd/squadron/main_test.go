package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const testCatalog = `
builds:
  - {name: Alpha, archetype: A, buffs: [quickness], roles: [heal], playstyles: [zerg]}
  - {name: Bravo, archetype: B, roles: [dps], playstyles: [zerg]}
  - {name: Charlie, archetype: C, roles: [dps], playstyles: [zerg]}
  - {name: Delta, archetype: D, playstyles: [roaming]}
`

const testConfig = `
log_level: error
worker_count: 2
team_size: 3
top_n: 3
scoring:
  version: "test"
  buff_weights:
    quickness: {weight: 2}
  role_weights:
    heal: {weight: 2, required_count: 1}
    dps: {weight: 1, required_count: 2}
  duplicate_penalty: {threshold: 2, penalty_per_extra: 1, enabled: true}
jobs:
  - name: exhaustive
    strategy: exhaustive
  - name: genetic
    strategy: genetic
    population: 20
    generations: 5
    seed: 3
  - name: nobody-roams-in-threes
    strategy: exhaustive
    playstyle: roaming
  - name: unknown-archetype
    strategy: genetic
    archetypes: [Z]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := writeFile(t, dir, "catalog.yaml", testCatalog)
	configPath := writeFile(t, dir, "squadron.yaml", testConfig)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", configPath, "--catalog", catalogPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	convey.Convey("Given the search command", t, func() {
		convey.Convey("When searching exhaustively", func() {
			raw, err := run(t, "search", "--strategy", "exhaustive")
			convey.So(err, convey.ShouldBeNil)

			var out searchOutput
			convey.So(json.Unmarshal([]byte(raw), &out), convey.ShouldBeNil)

			convey.Convey("Then the best team is printed first", func() {
				convey.So(out.Strategy, convey.ShouldEqual, "exhaustive")
				convey.So(out.TeamSize, convey.ShouldEqual, 3)
				convey.So(out.Candidates, convey.ShouldEqual, 4)
				convey.So(out.Weights, convey.ShouldEqual, "test")
				convey.So(out.Teams, convey.ShouldNotBeEmpty)
				convey.So(out.Teams[0].TotalScore, convey.ShouldAlmostEqual, 0.9, 1e-9)
				convey.So(out.Teams[0].Archetypes, convey.ShouldResemble, []string{"A", "B", "C"})
				convey.So(out.Teams[0].Result, convey.ShouldBeNil)
			})
		})

		convey.Convey("When searching genetically without a seed", func() {
			raw, err := run(t, "search", "--playstyle", "zerg", "--details")
			convey.So(err, convey.ShouldBeNil)

			var out searchOutput
			convey.So(json.Unmarshal([]byte(raw), &out), convey.ShouldBeNil)

			convey.Convey("Then the drawn seed is reported", func() {
				convey.So(out.Strategy, convey.ShouldEqual, "genetic")
				convey.So(out.Seed, convey.ShouldNotBeNil)
				convey.So(out.Candidates, convey.ShouldEqual, 3)
				convey.So(out.Teams[0].Result, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the strategy name is given in mixed case", func() {
			raw, err := run(t, "search", "--strategy", " Genetic ", "--playstyle", "zerg")
			convey.So(err, convey.ShouldBeNil)

			var out searchOutput
			convey.So(json.Unmarshal([]byte(raw), &out), convey.ShouldBeNil)

			convey.Convey("Then a seed is still drawn and reported", func() {
				convey.So(out.Seed, convey.ShouldNotBeNil)
				convey.So(out.Teams, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the filters match nothing", func() {
			_, err := run(t, "search", "--archetype", "Z")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		convey.Convey("When scoring named builds", func() {
			raw, err := run(t, "score", "alpha", "Bravo", "Charlie")
			convey.So(err, convey.ShouldBeNil)

			var out struct {
				TotalScore float64 `json:"total_score"`
				Labels     []string
			}
			convey.So(json.Unmarshal([]byte(raw), &out), convey.ShouldBeNil)

			convey.Convey("Then the breakdown is printed", func() {
				convey.So(out.TotalScore, convey.ShouldAlmostEqual, 0.9, 1e-9)
				convey.So(out.Labels, convey.ShouldResemble, []string{"A", "B", "C"})
			})
		})

		convey.Convey("When a name is unknown", func() {
			_, err := run(t, "score", "Echo")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestBatchCommand(t *testing.T) {
	convey.Convey("Given the batch command", t, func() {
		raw, err := run(t, "batch", "--top", "2")
		convey.So(err, convey.ShouldBeNil)

		var out batchOutput
		convey.So(json.Unmarshal([]byte(raw), &out), convey.ShouldBeNil)

		convey.Convey("Then every job is reported in order", func() {
			convey.So(out.Jobs, convey.ShouldHaveLength, 4)
			convey.So(out.Jobs[0].Name, convey.ShouldEqual, "exhaustive")
			convey.So(out.Jobs[0].Error, convey.ShouldBeEmpty)
			convey.So(out.Jobs[1].Name, convey.ShouldEqual, "genetic")
			convey.So(out.Jobs[1].Error, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the failing job does not stop the others", func() {
			convey.So(out.Jobs[2].Error, convey.ShouldNotBeEmpty)
			convey.So(out.Jobs[2].Teams, convey.ShouldBeEmpty)
		})

		convey.Convey("Then a job whose filters match nothing names the filter", func() {
			convey.So(out.Jobs[3].Name, convey.ShouldEqual, "unknown-archetype")
			convey.So(out.Jobs[3].Error, convey.ShouldContainSubstring, "no builds match the filters")
			convey.So(out.Jobs[3].Candidates, convey.ShouldEqual, 0)
			convey.So(out.Jobs[3].Teams, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the leaderboard ranks the best team first", func() {
			convey.So(out.Leaderboard, convey.ShouldHaveLength, 2)
			convey.So(out.Leaderboard[0].Rank, convey.ShouldEqual, 1)
			convey.So(out.Leaderboard[0].Score, convey.ShouldAlmostEqual, 0.9, 1e-9)
		})
	})
}
