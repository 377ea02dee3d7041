package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/squadron/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	convey.Convey("Given a build constructor", t, func() {
		convey.Convey("When the archetype is empty", func() {
			_, err := model.NewBuild("  ")

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidBuild), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When tags are given unsorted with duplicates", func() {
			b := model.MustBuild("guardian",
				model.WithBuffs("might", "aegis", "might", ""),
				model.WithRoles("heal"),
				model.WithEliteVariant("firebrand"),
			)

			convey.Convey("Then they should be stored as a sorted set", func() {
				convey.So(b.Buffs(), convey.ShouldResemble, []string{"aegis", "might"})
				convey.So(b.HasBuff("might"), convey.ShouldBeTrue)
				convey.So(b.HasBuff("fury"), convey.ShouldBeFalse)
				convey.So(b.HasRole("heal"), convey.ShouldBeTrue)
				convey.So(b.Label(), convey.ShouldEqual, "guardian (firebrand)")
				convey.So(b.Valid(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the caller mutates inputs and outputs", func() {
			weapons := []string{"staff"}
			b := model.MustBuild("mesmer", model.WithWeapons(weapons...), model.WithBuffs("alacrity"))
			weapons[0] = "sword"
			out := b.Buffs()
			out[0] = "changed"

			convey.Convey("Then the build should be unaffected", func() {
				convey.So(b.Weapons(), convey.ShouldResemble, []string{"staff"})
				convey.So(b.Buffs(), convey.ShouldResemble, []string{"alacrity"})
			})
		})

		convey.Convey("When two builds hold equal values", func() {
			a := model.MustBuild("warrior", model.WithBuffs("might", "fury"), model.WithRoles("dps"))
			b := model.MustBuild("warrior", model.WithBuffs("fury", "might"), model.WithRoles("dps"))
			c := model.MustBuild("warrior", model.WithBuffs("fury", "might"), model.WithRoles("dps"), model.WithDescription("x"))

			convey.Convey("Then their keys should match", func() {
				convey.So(a.Key(), convey.ShouldEqual, b.Key())
				convey.So(a.ScoringKey(), convey.ShouldEqual, c.ScoringKey())
				convey.So(a.Key(), convey.ShouldNotEqual, c.Key())
			})
		})

		convey.Convey("When tags contain separator characters", func() {
			a := model.MustBuild("a", model.WithBuffs("x,y"))
			b := model.MustBuild("a", model.WithBuffs("x", "y"))

			convey.Convey("Then keys should not collide", func() {
				convey.So(a.ScoringKey(), convey.ShouldNotEqual, b.ScoringKey())
			})
		})

		convey.Convey("When a zero build is inspected", func() {
			var b model.Build

			convey.Convey("Then it should not be valid", func() {
				convey.So(b.Valid(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestTeam(t *testing.T) {
	convey.Convey("Given a team of builds", t, func() {
		a := model.MustBuild("a")
		b := model.MustBuild("b")

		convey.Convey("When the same builds appear in a different order", func() {
			t1 := model.Team{a, b, a}
			t2 := model.Team{a, a, b}

			convey.Convey("Then the fingerprints should match", func() {
				convey.So(t1.Fingerprint(), convey.ShouldEqual, t2.Fingerprint())
				convey.So(t1.Fingerprint(), convey.ShouldNotEqual, model.Team{a, b, b}.Fingerprint())
			})
		})

		convey.Convey("When the team is split into subgroups", func() {
			team := model.Team{a, a, a, a, a, b, b}
			groups := team.Subgroups()

			convey.Convey("Then the last chunk should be short", func() {
				convey.So(len(groups), convey.ShouldEqual, 2)
				convey.So(len(groups[0]), convey.ShouldEqual, model.SquadSize)
				convey.So(groups[1].Archetypes(), convey.ShouldResemble, []string{"b", "b"})
			})
		})

		convey.Convey("When the team is empty", func() {
			convey.Convey("Then there should be no subgroups", func() {
				convey.So(model.Team{}.Subgroups(), convey.ShouldBeEmpty)
			})
		})
	})
}
