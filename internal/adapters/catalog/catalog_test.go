package catalog_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/squadron/internal/adapters/catalog"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

const sample = `
builds:
  - name: Firebrand Heal Quickness
    archetype: Guardian
    elite: Firebrand
    buffs: [might, quickness, stability, aegis]
    roles: [heal, quickness, support]
    playstyles: [zerg, havoc]
    weapons: [Mace/Shield, Staff]
  - name: Dragonhunter Roamer
    archetype: Guardian
    elite: Dragonhunter
    buffs: [aegis, protection]
    roles: [dps]
    playstyles: [roaming]
  - name: Scourge Support
    archetype: Necromancer
    elite: Scourge
    buffs: [condition_cleanse, resistance]
    roles: [support, dps]
    playstyles: [zerg]
    description: Barrier and corrupts
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		ctx := context.Background()
		c, err := catalog.Load(ctx, writeCatalog(t, sample))

		Convey("Then every build is loaded in order", func() {
			So(err, ShouldBeNil)
			So(c.Len(), ShouldEqual, 3)
			entries := c.Entries()
			So(entries[0].Name, ShouldEqual, "Firebrand Heal Quickness")
			So(entries[0].Build.ArchetypeID(), ShouldEqual, "Guardian")
			So(entries[0].Build.EliteVariant(), ShouldEqual, "Firebrand")
			So(entries[0].Build.Weapons(), ShouldResemble, []string{"Mace/Shield", "Staff"})
			So(entries[2].Build.Description(), ShouldEqual, "Barrier and corrupts")
		})

		Convey("When looking a build up by name", func() {
			b, err := c.Lookup("scourge support")

			Convey("Then case is ignored", func() {
				So(err, ShouldBeNil)
				So(b.HasRole("support"), ShouldBeTrue)
			})

			_, err = c.Lookup("Herald")
			So(errors.Is(err, catalog.ErrBuildNotFound), ShouldBeTrue)
		})

		Convey("When filtering by playstyle", func() {
			builds, err := c.Filter("ZERG", nil)

			Convey("Then only matching builds remain", func() {
				So(err, ShouldBeNil)
				So(builds, ShouldHaveLength, 2)
				So(builds[0].EliteVariant(), ShouldEqual, "Firebrand")
				So(builds[1].EliteVariant(), ShouldEqual, "Scourge")
			})
		})

		Convey("When filtering by archetype", func() {
			builds, err := c.Filter("", []string{"guardian"})

			Convey("Then other archetypes are dropped", func() {
				So(err, ShouldBeNil)
				So(builds, ShouldHaveLength, 2)
			})
		})

		Convey("When nothing matches", func() {
			_, err := c.Filter("roaming", []string{"Necromancer"})

			Convey("Then ErrNoCandidates is returned", func() {
				So(errors.Is(err, catalog.ErrNoCandidates), ShouldBeTrue)
			})
		})
	})

	Convey("Given broken catalog files", t, func() {
		ctx := context.Background()

		Convey("When the file is missing", func() {
			_, err := catalog.Load(ctx, filepath.Join(t.TempDir(), "none.yaml"))
			So(errors.Is(err, catalog.ErrLoad), ShouldBeTrue)
		})

		Convey("When a build has no archetype", func() {
			_, err := catalog.Load(ctx, writeCatalog(t, "builds:\n  - name: ghost\n    roles: [dps]\n"))
			So(errors.Is(err, model.ErrInvalidBuild), ShouldBeTrue)
		})

		Convey("When two builds share a name", func() {
			_, err := catalog.Load(ctx, writeCatalog(t, "builds:\n  - {name: x, archetype: A}\n  - {name: X, archetype: B}\n"))
			So(errors.Is(err, catalog.ErrDuplicateName), ShouldBeTrue)
		})

		Convey("When the file has no builds", func() {
			_, err := catalog.Load(ctx, writeCatalog(t, "builds: []\n"))
			So(errors.Is(err, catalog.ErrEmpty), ShouldBeTrue)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given entries without names", t, func() {
		c, err := catalog.New(catalog.Entry{Build: model.MustBuild("Guardian", model.WithEliteVariant("Firebrand"))})

		Convey("Then the build label becomes the name", func() {
			So(err, ShouldBeNil)
			_, err := c.Lookup("Guardian (Firebrand)")
			So(err, ShouldBeNil)
		})
	})

	Convey("Given an invalid build", t, func() {
		_, err := catalog.New(catalog.Entry{Name: "zero"})
		So(errors.Is(err, model.ErrInvalidBuild), ShouldBeTrue)
	})
}
