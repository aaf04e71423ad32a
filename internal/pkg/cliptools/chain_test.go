package cliptools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/model/pipeline"
)

// scriptedProvider 按脚本应答的假提供者
// 提交时返回递增的任务ID并记录调用顺序，查询时返回预设的状态序列
type scriptedProvider struct {
	submitted []*SubmitExtensionRequest          // 按提交顺序记录的续接请求
	statuses  map[string][]*TaskStatus           // 每个任务的状态脚本，逐次弹出
	submitErr error                              // 非空时提交直接失败
	onQuery   func(taskID string) (*TaskStatus, error) // 可选的查询钩子，优先于脚本
	nextID    int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{statuses: make(map[string][]*TaskStatus)}
}

func (p *scriptedProvider) SubmitBase(ctx context.Context, req *SubmitBaseRequest) (string, error) {
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.nextID++
	return fmt.Sprintf("task-%d", p.nextID), nil
}

func (p *scriptedProvider) SubmitExtension(ctx context.Context, req *SubmitExtensionRequest) (string, error) {
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.submitted = append(p.submitted, req)
	p.nextID++
	return fmt.Sprintf("task-%d", p.nextID), nil
}

func (p *scriptedProvider) QueryStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if p.onQuery != nil {
		return p.onQuery(taskID)
	}
	script := p.statuses[taskID]
	if len(script) == 0 {
		// 脚本耗尽后默认立即成功
		return &TaskStatus{
			State:     pipeline.TaskStateSucceeded,
			Progress:  1.0,
			ResultURL: "http://clips/" + taskID + ".mp4",
		}, nil
	}
	status := script[0]
	p.statuses[taskID] = script[1:]
	return status, nil
}

// memoryRecorder 内存任务记录器
type memoryRecorder struct {
	created []*pipeline.Task
	updates int
}

func (r *memoryRecorder) CreateTask(ctx context.Context, t *pipeline.Task) error {
	r.created = append(r.created, t)
	return nil
}

func (r *memoryRecorder) UpdateTask(ctx context.Context, t *pipeline.Task) {
	r.updates++
}

func fastPoller(provider VideoTaskProvider) *Poller {
	return NewPoller(provider, PollerConfig{
		Interval:          time.Millisecond,
		MaxAttempts:       50,
		RejectGracePolls:  2,
		MissingURLRetries: 2,
	})
}

func succeededBase(sceneID string) *pipeline.Task {
	return &pipeline.Task{
		ID:             "t-base",
		SceneID:        sceneID,
		ProviderTaskID: "provider-base",
		Kind:           pipeline.TaskKindBase,
		State:          pipeline.TaskStateSucceeded,
		ResultURL:      "http://clips/base.mp4",
	}
}

func TestChain_EnsureDuration(t *testing.T) {
	Convey("Chain.EnsureDuration 串行推进续接链到完成", t, func() {
		scene := &pipeline.Scene{
			ID:          "scene-1",
			ProjectID:   "project-1",
			Index:       0,
			DurationSec: 24,
			VisualSeed:  12345,
			ContinuationPrompts: []string{
				"第一段续接：动作展开",
				"第二段续接：动作收束",
			},
		}

		Convey("24秒场景（baseUnit=8）需要两次续接", func() {
			provider := newScriptedProvider()
			chain := NewChain(provider, fastPoller(provider), 8)
			rec := &memoryRecorder{}

			tasks, err := chain.EnsureDuration(context.Background(), scene,
				[]*pipeline.Task{succeededBase(scene.ID)}, rec)
			So(err, ShouldBeNil)
			So(len(tasks), ShouldEqual, 3)

			Convey("续接严格按序号提交，续接点指向前序任务", func() {
				So(len(provider.submitted), ShouldEqual, 2)
				So(provider.submitted[0].ExtensionIndex, ShouldEqual, 1)
				So(provider.submitted[1].ExtensionIndex, ShouldEqual, 2)
				So(provider.submitted[0].ParentTaskID, ShouldEqual, "provider-base")
				So(provider.submitted[1].ParentTaskID, ShouldEqual, tasks[1].ProviderTaskID)
			})

			Convey("每次续接复用场景的共享种子", func() {
				So(provider.submitted[0].Seed, ShouldEqual, 12345)
				So(provider.submitted[1].Seed, ShouldEqual, 12345)
			})

			Convey("续接消耗预生成的逐段提示词", func() {
				So(provider.submitted[0].Prompt, ShouldEqual, "第一段续接：动作展开")
				So(provider.submitted[1].Prompt, ShouldEqual, "第二段续接：动作收束")
			})

			Convey("续接任务已全部落库并到达成功终态", func() {
				So(len(rec.created), ShouldEqual, 2)
				for _, task := range tasks[1:] {
					So(task.State, ShouldEqual, pipeline.TaskStateSucceeded)
					So(task.ResultURL, ShouldNotBeEmpty)
				}
			})
		})

		Convey("链已完整时不再提交", func() {
			provider := newScriptedProvider()
			chain := NewChain(provider, fastPoller(provider), 8)
			rec := &memoryRecorder{}

			existing := []*pipeline.Task{
				succeededBase(scene.ID),
				{ID: "t-e1", ProviderTaskID: "provider-e1", Kind: pipeline.TaskKindExtension,
					ExtensionIndex: 1, State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/e1.mp4"},
				{ID: "t-e2", ProviderTaskID: "provider-e2", Kind: pipeline.TaskKindExtension,
					ExtensionIndex: 2, State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/e2.mp4"},
			}

			tasks, err := chain.EnsureDuration(context.Background(), scene, existing, rec)
			So(err, ShouldBeNil)
			So(len(tasks), ShouldEqual, 3)
			So(len(provider.submitted), ShouldEqual, 0)
		})

		Convey("从中断处恢复：已成功一次续接则只补剩下的", func() {
			provider := newScriptedProvider()
			chain := NewChain(provider, fastPoller(provider), 8)
			rec := &memoryRecorder{}

			existing := []*pipeline.Task{
				succeededBase(scene.ID),
				{ID: "t-e1", ProviderTaskID: "provider-e1", Kind: pipeline.TaskKindExtension,
					ExtensionIndex: 1, State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/e1.mp4"},
			}

			tasks, err := chain.EnsureDuration(context.Background(), scene, existing, rec)
			So(err, ShouldBeNil)
			So(len(tasks), ShouldEqual, 3)
			So(len(provider.submitted), ShouldEqual, 1)
			So(provider.submitted[0].ExtensionIndex, ShouldEqual, 2)
			So(provider.submitted[0].ParentTaskID, ShouldEqual, "provider-e1")
		})

		Convey("提交失败返回 ProviderError", func() {
			provider := newScriptedProvider()
			provider.submitErr = fmt.Errorf("boom")
			chain := NewChain(provider, fastPoller(provider), 8)

			_, err := chain.EnsureDuration(context.Background(), scene,
				[]*pipeline.Task{succeededBase(scene.ID)}, &memoryRecorder{})
			So(err, ShouldNotBeNil)
			var provErr *ProviderError
			So(errors.As(err, &provErr), ShouldBeTrue)
		})
	})
}

func TestNextExtension(t *testing.T) {
	Convey("NextExtension 从持久化任务列表推导下一步动作", t, func() {
		base := succeededBase("scene-1")

		Convey("只有成功的 base 时从续接1开始", func() {
			next, parent, err := NextExtension([]*pipeline.Task{base}, 2)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, 1)
			So(parent, ShouldEqual, base)
		})

		Convey("已成功的续接数满足需求时链完整", func() {
			ext1 := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 1,
				State: pipeline.TaskStateSucceeded, ProviderTaskID: "provider-e1"}
			next, parent, err := NextExtension([]*pipeline.Task{base, ext1}, 1)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, 0)
			So(parent, ShouldEqual, ext1)
		})

		Convey("任务列表乱序也能推导正确的续接点", func() {
			ext1 := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 1,
				State: pipeline.TaskStateSucceeded, ProviderTaskID: "provider-e1"}
			ext2 := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 2,
				State: pipeline.TaskStateSucceeded, ProviderTaskID: "provider-e2"}
			next, parent, err := NextExtension([]*pipeline.Task{ext2, base, ext1}, 3)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, 3)
			So(parent, ShouldEqual, ext2)
		})

		Convey("base 缺失或未成功返回错误", func() {
			_, _, err := NextExtension(nil, 1)
			So(err, ShouldNotBeNil)

			pending := &pipeline.Task{Kind: pipeline.TaskKindBase, State: pipeline.TaskStateGenerating}
			_, _, err = NextExtension([]*pipeline.Task{pending}, 1)
			So(err, ShouldNotBeNil)
		})

		Convey("链上有失败的续接时终止整条链", func() {
			failed := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 1,
				State: pipeline.TaskStateFailed, ErrorMessage: "provider error"}
			_, _, err := NextExtension([]*pipeline.Task{base, failed}, 2)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFinalClipURL(t *testing.T) {
	Convey("FinalClipURL 取场景的最终片段", t, func() {
		base := succeededBase("scene-1")

		Convey("没有续接时取 base 的结果", func() {
			url, err := FinalClipURL([]*pipeline.Task{base})
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://clips/base.mp4")
		})

		Convey("有续接时取最后一个成功续接的结果（输出是累积的）", func() {
			ext1 := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 1,
				State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/e1.mp4"}
			ext2 := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 2,
				State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/e2.mp4"}

			url, err := FinalClipURL([]*pipeline.Task{base, ext2, ext1})
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://clips/e2.mp4")
		})

		Convey("忽略未成功的任务", func() {
			failed := &pipeline.Task{Kind: pipeline.TaskKindExtension, ExtensionIndex: 1,
				State: pipeline.TaskStateFailed, ResultURL: "http://clips/broken.mp4"}
			url, err := FinalClipURL([]*pipeline.Task{base, failed})
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://clips/base.mp4")
		})

		Convey("没有任何带结果的成功任务时返回错误", func() {
			_, err := FinalClipURL(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestContinuationPrompt(t *testing.T) {
	Convey("ContinuationPrompt 按序号取续接提示词", t, func() {
		scene := &pipeline.Scene{
			ContinuationPrompts: []string{"第一段", "第二段"},
		}

		Convey("序号在范围内时取预生成的提示词", func() {
			So(ContinuationPrompt(scene, 1), ShouldEqual, "第一段")
			So(ContinuationPrompt(scene, 2), ShouldEqual, "第二段")
		})

		Convey("提示词耗尽时回退到通用续接提示词", func() {
			So(ContinuationPrompt(scene, 3), ShouldEqual, GenericContinuationPrompt)
			So(ContinuationPrompt(&pipeline.Scene{}, 1), ShouldEqual, GenericContinuationPrompt)
		})
	})
}
