package cliptools

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/model/pipeline"
)

func pollerTask() *pipeline.Task {
	return &pipeline.Task{
		ID:             "t-1",
		ProviderTaskID: "provider-1",
		Kind:           pipeline.TaskKindBase,
		State:          pipeline.TaskStateQueued,
	}
}

func pollerConfig() PollerConfig {
	return PollerConfig{
		Interval:          time.Millisecond,
		MaxAttempts:       10,
		RejectGracePolls:  3,
		MissingURLRetries: 2,
	}
}

func TestPoller_PollUntilTerminal(t *testing.T) {
	Convey("Poller.PollUntilTerminal 驱动任务到终态", t, func() {
		task := pollerTask()

		Convey("排队、生成中、成功的正常序列", func() {
			provider := newScriptedProvider()
			provider.statuses["provider-1"] = []*TaskStatus{
				{State: pipeline.TaskStateQueued},
				{State: pipeline.TaskStateGenerating, Progress: 0.5},
				{State: pipeline.TaskStateSucceeded, Progress: 1.0, ResultURL: "http://clips/1.mp4"},
			}
			poller := NewPoller(provider, pollerConfig())
			rec := &memoryRecorder{}

			err := poller.PollUntilTerminal(context.Background(), task, rec.UpdateTask)
			So(err, ShouldBeNil)
			So(task.State, ShouldEqual, pipeline.TaskStateSucceeded)
			So(task.ResultURL, ShouldEqual, "http://clips/1.mp4")
			So(rec.updates, ShouldBeGreaterThan, 0)
		})

		Convey("成功但URL缺失是瞬态：下一轮补上URL则正常成功", func() {
			provider := newScriptedProvider()
			provider.statuses["provider-1"] = []*TaskStatus{
				{State: pipeline.TaskStateSucceeded},
				{State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/1.mp4"},
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			So(err, ShouldBeNil)
			So(task.ResultURL, ShouldEqual, "http://clips/1.mp4")
		})

		Convey("URL持续缺失超过重试次数返回 MissingResultError", func() {
			provider := newScriptedProvider()
			provider.onQuery = func(taskID string) (*TaskStatus, error) {
				return &TaskStatus{State: pipeline.TaskStateSucceeded}, nil
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			var missingErr *MissingResultError
			So(errors.As(err, &missingErr), ShouldBeTrue)
			So(task.State, ShouldEqual, pipeline.TaskStateFailed)
		})

		Convey("失败终态返回错误并保留错误信息", func() {
			provider := newScriptedProvider()
			provider.statuses["provider-1"] = []*TaskStatus{
				{State: pipeline.TaskStateGenerating},
				{State: pipeline.TaskStateFailed, ErrorMessage: "internal provider error"},
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			So(err, ShouldNotBeNil)
			So(task.State, ShouldEqual, pipeline.TaskStateFailed)
			So(task.ErrorMessage, ShouldEqual, "internal provider error")
		})

		Convey("宽限期内审核拒绝翻转为成功则正常成功", func() {
			provider := newScriptedProvider()
			provider.statuses["provider-1"] = []*TaskStatus{
				{State: pipeline.TaskStateRejected, ErrorMessage: "output flagged"},
				{State: pipeline.TaskStateRejected, ErrorMessage: "output flagged"},
				{State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/1.mp4"},
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			So(err, ShouldBeNil)
			So(task.State, ShouldEqual, pipeline.TaskStateSucceeded)
		})

		Convey("审核拒绝超过宽限次数返回 ContentPolicyError", func() {
			provider := newScriptedProvider()
			provider.onQuery = func(taskID string) (*TaskStatus, error) {
				return &TaskStatus{State: pipeline.TaskStateRejected, ErrorMessage: "output flagged"}, nil
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			var policyErr *ContentPolicyError
			So(errors.As(err, &policyErr), ShouldBeTrue)
			So(policyErr.TaskID, ShouldEqual, "provider-1")

			Convey("落库状态保留 rejected，审计时区分审核拒绝和普通失败", func() {
				So(task.State, ShouldEqual, pipeline.TaskStateRejected)
			})
		})

		Convey("始终未到终态时超过最大轮询次数返回 TimeoutError", func() {
			provider := newScriptedProvider()
			provider.onQuery = func(taskID string) (*TaskStatus, error) {
				return &TaskStatus{State: pipeline.TaskStateGenerating, Progress: 0.3}, nil
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			var timeoutErr *TimeoutError
			So(errors.As(err, &timeoutErr), ShouldBeTrue)
			So(timeoutErr.Attempts, ShouldEqual, 10)
		})

		Convey("单次查询失败视为瞬态，后续成功则正常结束", func() {
			provider := newScriptedProvider()
			calls := 0
			provider.onQuery = func(taskID string) (*TaskStatus, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("connection reset")
				}
				return &TaskStatus{State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/1.mp4"}, nil
			}
			poller := NewPoller(provider, pollerConfig())

			err := poller.PollUntilTerminal(context.Background(), task, nil)
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
		})

		Convey("ctx 取消时放弃轮询", func() {
			provider := newScriptedProvider()
			provider.onQuery = func(taskID string) (*TaskStatus, error) {
				return &TaskStatus{State: pipeline.TaskStateGenerating}, nil
			}
			poller := NewPoller(provider, PollerConfig{
				Interval:    50 * time.Millisecond,
				MaxAttempts: 100,
			})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := poller.PollUntilTerminal(ctx, task, nil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
