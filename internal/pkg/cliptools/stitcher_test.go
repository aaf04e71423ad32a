package cliptools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildXfadeFilter(t *testing.T) {
	Convey("BuildXfadeFilter 构建链式交叉淡化滤镜图", t, func() {
		Convey("偏移量为累计时长减去已消耗的转场重叠", func() {
			filter := BuildXfadeFilter([]float64{8, 8, 8, 6}, "fade", 0.5)
			So(filter, ShouldEqual,
				"[0:v][1:v]xfade=transition=fade:duration=0.5:offset=7.5[v1];"+
					"[v1][2:v]xfade=transition=fade:duration=0.5:offset=15[v2];"+
					"[v2][3:v]xfade=transition=fade:duration=0.5:offset=22.5[v3]")
		})

		Convey("两个片段只有一个转场", func() {
			filter := BuildXfadeFilter([]float64{8, 4}, "dissolve", 1)
			So(filter, ShouldEqual,
				"[0:v][1:v]xfade=transition=dissolve:duration=1:offset=7[v1]")
		})

		Convey("单个片段不产生滤镜", func() {
			So(BuildXfadeFilter([]float64{8}, "fade", 0.5), ShouldBeEmpty)
		})
	})
}

func TestBuildAcrossfadeFilter(t *testing.T) {
	Convey("BuildAcrossfadeFilter 构建链式音频交叉淡化滤镜图", t, func() {
		Convey("音频交叉淡化自带重叠语义，不需要偏移", func() {
			filter := BuildAcrossfadeFilter(3, 0.5)
			So(filter, ShouldEqual,
				"[0:a][1:a]acrossfade=d=0.5[a1];[a1][2:a]acrossfade=d=0.5[a2]")
		})

		Convey("单个片段不产生滤镜", func() {
			So(BuildAcrossfadeFilter(1, 0.5), ShouldBeEmpty)
		})
	})
}

func TestStitchedDuration(t *testing.T) {
	Convey("StitchedDuration 计算拼接后的总时长", t, func() {
		Convey("每个转场消耗一份重叠时长", func() {
			So(StitchedDuration([]float64{8, 8, 8, 6}, 0.5), ShouldAlmostEqual, 28.5, 1e-9)
		})

		Convey("单个片段不消耗转场时长", func() {
			So(StitchedDuration([]float64{8}, 0.5), ShouldAlmostEqual, 8, 1e-9)
		})

		Convey("空列表为0", func() {
			So(StitchedDuration(nil, 0.5), ShouldAlmostEqual, 0, 1e-9)
		})
	})
}
