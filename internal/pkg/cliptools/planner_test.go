package cliptools

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/model/pipeline"
)

func TestPlanner_Plan(t *testing.T) {
	Convey("Planner.Plan 能把总时长规划为有序场景列表", t, func() {
		planner := NewPlanner(8)

		Convey("时长恰为 baseUnit 的整数倍时均分", func() {
			plan, err := planner.Plan("山间清晨的薄雾", 24, pipeline.StyleCinematic, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)
			So(len(plan.Scenes), ShouldEqual, 3)
			for _, s := range plan.Scenes {
				So(s.DurationSec, ShouldEqual, 8)
			}
		})

		Convey("有余数时最后一个场景取余数", func() {
			plan, err := planner.Plan("山间清晨的薄雾", 20, pipeline.StyleCinematic, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)
			So(len(plan.Scenes), ShouldEqual, 3)
			So(plan.Scenes[0].DurationSec, ShouldEqual, 8)
			So(plan.Scenes[1].DurationSec, ShouldEqual, 8)
			So(plan.Scenes[2].DurationSec, ShouldEqual, 4)
		})

		Convey("场景时长之和等于请求的总时长", func() {
			for _, total := range []int{1, 7, 8, 9, 15, 16, 17, 60, 121} {
				plan, err := planner.Plan("海边的落日", total, pipeline.StyleRealistic, rand.New(rand.NewSource(7)))
				So(err, ShouldBeNil)

				sum := 0
				for _, s := range plan.Scenes {
					sum += s.DurationSec
					So(s.DurationSec, ShouldBeLessThanOrEqualTo, 8)
					So(s.DurationSec, ShouldBeGreaterThanOrEqualTo, 1)
				}
				So(sum, ShouldEqual, total)
			}
		})

		Convey("场景序号连续且从0开始", func() {
			plan, err := planner.Plan("森林里的小鹿", 40, pipeline.StyleAnime, rand.New(rand.NewSource(3)))
			So(err, ShouldBeNil)
			for i, s := range plan.Scenes {
				So(s.Index, ShouldEqual, i)
			}
		})

		Convey("所有场景共享同一个种子和身份描述", func() {
			plan, err := planner.Plan("雨夜的城市街道", 32, pipeline.StyleCinematic, rand.New(rand.NewSource(5)))
			So(err, ShouldBeNil)
			So(plan.VisualSeed, ShouldBeGreaterThanOrEqualTo, 10000)
			So(plan.VisualSeed, ShouldBeLessThanOrEqualTo, 99999)
			So(plan.IdentityPhrase, ShouldNotBeEmpty)
			for _, s := range plan.Scenes {
				So(s.VisualSeed, ShouldEqual, plan.VisualSeed)
				So(s.BasePrompt, ShouldContainSubstring, plan.IdentityPhrase)
				for _, cp := range s.ContinuationPrompts {
					So(cp, ShouldContainSubstring, plan.IdentityPhrase)
				}
			}
		})

		Convey("相同的随机源状态产出相同的计划", func() {
			plan1, err := planner.Plan("雪山脚下的村庄", 24, pipeline.StyleDocumentary, rand.New(rand.NewSource(42)))
			So(err, ShouldBeNil)
			plan2, err := planner.Plan("雪山脚下的村庄", 24, pipeline.StyleDocumentary, rand.New(rand.NewSource(42)))
			So(err, ShouldBeNil)

			So(plan1.VisualSeed, ShouldEqual, plan2.VisualSeed)
			So(plan1.IdentityPhrase, ShouldEqual, plan2.IdentityPhrase)
			So(len(plan1.Scenes), ShouldEqual, len(plan2.Scenes))
			for i := range plan1.Scenes {
				So(plan1.Scenes[i].BasePrompt, ShouldEqual, plan2.Scenes[i].BasePrompt)
			}
		})

		Convey("非法输入返回错误", func() {
			rng := rand.New(rand.NewSource(1))

			_, err := planner.Plan("", 24, pipeline.StyleCinematic, rng)
			So(err, ShouldNotBeNil)

			_, err = planner.Plan("主题", 0, pipeline.StyleCinematic, rng)
			So(err, ShouldNotBeNil)

			_, err = planner.Plan("主题", -5, pipeline.StyleCinematic, rng)
			So(err, ShouldNotBeNil)

			_, err = planner.Plan("主题", 24, pipeline.Style("watercolor"), rng)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPlanner_ExtensionsNeeded(t *testing.T) {
	Convey("ExtensionsNeeded 计算场景需要的续接次数", t, func() {
		planner := NewPlanner(8)

		Convey("不超过 baseUnit 时不需要续接", func() {
			So(planner.ExtensionsNeeded(1), ShouldEqual, 0)
			So(planner.ExtensionsNeeded(8), ShouldEqual, 0)
		})

		Convey("超过 baseUnit 时按整段计算", func() {
			So(planner.ExtensionsNeeded(9), ShouldEqual, 0)
			So(planner.ExtensionsNeeded(16), ShouldEqual, 1)
			So(planner.ExtensionsNeeded(17), ShouldEqual, 1)
			So(planner.ExtensionsNeeded(24), ShouldEqual, 2)
			So(planner.ExtensionsNeeded(80), ShouldEqual, 9)
		})
	})
}
