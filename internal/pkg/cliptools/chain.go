package cliptools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/id"
)

// TaskRecorder 任务持久化回调
// 编排器通过它记录新任务和状态变化，不直接依赖存储实现
type TaskRecorder interface {
	// CreateTask 记录新提交的任务
	CreateTask(ctx context.Context, t *pipeline.Task) error
	// UpdateTask 记录任务状态变化（尽力而为，失败只记日志）
	UpdateTask(ctx context.Context, t *pipeline.Task)
}

// Chain 续接链编排器
//
// 每个场景是一条独立的串行链：续接 k+1 必须等续接 k（k=1 时为 base 任务）
// 到达成功终态后才能提交，因为提供者的续接调用需要前序任务的ID作为续接点。
// 场景之间互不影响，可以并发推进各自的链。
//
// 编排器是可重入的：下一步动作每次都从持久化的任务列表推导，
// 而不是内存里的计数器，所以进程重启后可以从中断处继续
type Chain struct {
	provider    VideoTaskProvider
	poller      *Poller
	baseUnitSec int
}

// NewChain 创建续接链编排器
func NewChain(provider VideoTaskProvider, poller *Poller, baseUnitSec int) *Chain {
	return &Chain{
		provider:    provider,
		poller:      poller,
		baseUnitSec: baseUnitSec,
	}
}

// ExtensionsNeeded 计算场景需要的续接次数
func (c *Chain) ExtensionsNeeded(durationSec int) int {
	if durationSec <= c.baseUnitSec {
		return 0
	}
	return (durationSec - c.baseUnitSec) / c.baseUnitSec
}

// EnsureDuration 把场景的续接链推进到完成
//
// tasks 是该场景已持久化的全部任务（至少包含成功的 base 任务）。
// 每轮迭代从任务列表推导下一个续接序号，提交、轮询到终态、追加，
// 直到链长度满足场景时长。任何一环失败即终止本场景的链，返回错误
func (c *Chain) EnsureDuration(ctx context.Context, scene *pipeline.Scene, tasks []*pipeline.Task, rec TaskRecorder) ([]*pipeline.Task, error) {
	needed := c.ExtensionsNeeded(scene.DurationSec)

	for {
		select {
		case <-ctx.Done():
			return tasks, ctx.Err()
		default:
		}

		next, parent, err := NextExtension(tasks, needed)
		if err != nil {
			return tasks, err
		}
		if next == 0 {
			// 链已完整
			return tasks, nil
		}

		prompt := ContinuationPrompt(scene, next)

		log.Info().
			Str("scene_id", scene.ID).
			Int("extension_index", next).
			Int("needed", needed).
			Str("parent_task_id", parent.ProviderTaskID).
			Msg("提交续接任务")

		providerTaskID, err := c.provider.SubmitExtension(ctx, &SubmitExtensionRequest{
			ParentTaskID:   parent.ProviderTaskID,
			Prompt:         prompt,
			Seed:           scene.VisualSeed, // 种子必须与 base 任务一致
			DurationSec:    c.baseUnitSec,
			ExtensionIndex: next,
		})
		if err != nil {
			return tasks, &ProviderError{Op: fmt.Sprintf("submit extension %d", next), Err: err}
		}

		task := &pipeline.Task{
			ID:             id.New(),
			ProjectID:      scene.ProjectID,
			SceneID:        scene.ID,
			SceneIndex:     scene.Index,
			ProviderTaskID: providerTaskID,
			Kind:           pipeline.TaskKindExtension,
			ExtensionIndex: next,
			ParentTaskID:   parent.ProviderTaskID,
			Seed:           scene.VisualSeed,
			Prompt:         prompt,
			State:          pipeline.TaskStateQueued,
			SubmittedAt:    time.Now(),
		}
		if err := rec.CreateTask(ctx, task); err != nil {
			return tasks, fmt.Errorf("record extension task: %w", err)
		}
		tasks = append(tasks, task)

		if err := c.poller.PollUntilTerminal(ctx, task, rec.UpdateTask); err != nil {
			return tasks, fmt.Errorf("extension %d: %w", next, err)
		}
	}
}

// NextExtension 从持久化的任务列表推导下一步动作
//
// 返回值：
//   - next = 0: 链已完整（已成功的续接数 >= needed）
//   - next > 0: 下一个待提交的续接序号，parent 是它的续接点
//
// base 任务缺失或未成功、链上有失败任务时返回错误
func NextExtension(tasks []*pipeline.Task, needed int) (next int, parent *pipeline.Task, err error) {
	var base *pipeline.Task
	exts := make([]*pipeline.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Kind == pipeline.TaskKindBase {
			base = t
		} else {
			exts = append(exts, t)
		}
	}

	if base == nil {
		return 0, nil, fmt.Errorf("no base task in chain")
	}
	if base.State != pipeline.TaskStateSucceeded {
		return 0, nil, fmt.Errorf("base task %s not succeeded (state=%s)", base.ID, base.State)
	}

	sort.Slice(exts, func(i, j int) bool {
		return exts[i].ExtensionIndex < exts[j].ExtensionIndex
	})

	// 统计从1开始连续成功的续接，链上任何失败都终止整条链
	completed := 0
	parent = base
	for _, ext := range exts {
		switch ext.State {
		case pipeline.TaskStateSucceeded:
			if ext.ExtensionIndex == completed+1 {
				completed = ext.ExtensionIndex
				parent = ext
			}
		case pipeline.TaskStateFailed:
			return 0, nil, fmt.Errorf("extension %d failed: %s", ext.ExtensionIndex, ext.ErrorMessage)
		}
	}

	if completed >= needed {
		return 0, parent, nil
	}
	return completed + 1, parent, nil
}

// ContinuationPrompt 取场景第 k 次续接的提示词
// 预生成的逐段提示词耗尽时回退到通用续接提示词
func ContinuationPrompt(scene *pipeline.Scene, k int) string {
	if k >= 1 && k <= len(scene.ContinuationPrompts) {
		return scene.ContinuationPrompts[k-1]
	}
	return GenericContinuationPrompt
}

// FinalClipURL 计算场景的最终片段URL
//
// 续接输出是累积的（每次续接的结果已经包含它之前的全部内容），
// 所以最终片段是最后一个成功续接的结果；没有续接时取 base 任务的结果。
// 把多个任务的输出拼起来会导致内容重复
func FinalClipURL(tasks []*pipeline.Task) (string, error) {
	var base *pipeline.Task
	var lastExt *pipeline.Task
	for _, t := range tasks {
		if t.State != pipeline.TaskStateSucceeded {
			continue
		}
		if t.Kind == pipeline.TaskKindBase {
			base = t
		} else if lastExt == nil || t.ExtensionIndex > lastExt.ExtensionIndex {
			lastExt = t
		}
	}

	if lastExt != nil && lastExt.ResultURL != "" {
		return lastExt.ResultURL, nil
	}
	if base != nil && base.ResultURL != "" {
		return base.ResultURL, nil
	}
	return "", fmt.Errorf("no succeeded task with result url")
}
