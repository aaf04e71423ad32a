package providers

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/ark"
)

func TestNormalizeArkStatus(t *testing.T) {
	Convey("NormalizeArkStatus 把提供者状态词汇归一化为闭合枚举", t, func() {
		Convey("排队类词汇", func() {
			for _, s := range []string{"queued", "pending", "submitted", "Queued", " QUEUED "} {
				So(NormalizeArkStatus(s, nil), ShouldEqual, pipeline.TaskStateQueued)
			}
		})

		Convey("生成中类词汇", func() {
			for _, s := range []string{"running", "generating", "processing"} {
				So(NormalizeArkStatus(s, nil), ShouldEqual, pipeline.TaskStateGenerating)
			}
		})

		Convey("成功类词汇", func() {
			for _, s := range []string{"succeeded", "completed", "success"} {
				So(NormalizeArkStatus(s, nil), ShouldEqual, pipeline.TaskStateSucceeded)
			}
		})

		Convey("失败类词汇", func() {
			for _, s := range []string{"failed", "error", "cancelled"} {
				So(NormalizeArkStatus(s, nil), ShouldEqual, pipeline.TaskStateFailed)
			}
		})

		Convey("审核拒绝", func() {
			So(NormalizeArkStatus("rejected", nil), ShouldEqual, pipeline.TaskStateRejected)
		})

		Convey("错误码含审核语义时无论状态词汇如何都归为 Rejected", func() {
			codes := []string{
				"OutputVideoSensitiveContentDetected",
				"InputTextSensitiveContentDetected",
				"content_policy_violation",
				"ModerationBlocked",
			}
			for _, code := range codes {
				So(NormalizeArkStatus("failed", &ark.TaskError{Code: code}),
					ShouldEqual, pipeline.TaskStateRejected)
			}
		})

		Convey("普通错误码不影响状态归一化", func() {
			So(NormalizeArkStatus("failed", &ark.TaskError{Code: "InternalServiceError"}),
				ShouldEqual, pipeline.TaskStateFailed)
		})

		Convey("未知词汇按 Generating 处理，让轮询器继续观察", func() {
			So(NormalizeArkStatus("warming_up", nil), ShouldEqual, pipeline.TaskStateGenerating)
			So(NormalizeArkStatus("", nil), ShouldEqual, pipeline.TaskStateGenerating)
		})
	})
}
