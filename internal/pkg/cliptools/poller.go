package cliptools

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pomelo/internal/model/pipeline"
)

// PollerConfig 轮询参数
type PollerConfig struct {
	Interval          time.Duration // 两次查询之间的固定间隔
	MaxAttempts       int           // 最大轮询次数，超过后视为超时
	RejectGracePolls  int           // rejected 状态的宽限轮询次数
	MissingURLRetries int           // 成功但缺少URL时的额外轮询次数
}

// TaskUpdateFunc 任务状态变化回调
// 轮询器每次查询后调用，调用方通常在这里落库；回调失败不影响轮询
type TaskUpdateFunc func(ctx context.Context, task *pipeline.Task)

// Poller 任务轮询状态机
// 以固定间隔查询任务直到终态。间隔固定而非指数退避：
// 提供者按任务维度限流查询，固定间隔已经是足够的回压
type Poller struct {
	provider VideoTaskProvider
	cfg      PollerConfig
}

// NewPoller 创建任务轮询器
func NewPoller(provider VideoTaskProvider, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 200
	}
	return &Poller{provider: provider, cfg: cfg}
}

// PollUntilTerminal 轮询任务直到终态，就地更新任务记录
//
// 状态处理规则：
//   - Queued / Generating: 继续轮询，更新进度
//   - Succeeded: 要求结果URL非空；缺失时视为瞬态异常，
//     额外轮询有限次数后仍缺失则返回 MissingResultError
//   - Failed: 终态，记录错误信息
//   - Rejected: 不立即视为终态。部分提供者复审后会把审核拒绝翻转为成功，
//     因此给出宽限窗口（按轮询次数计），窗口耗尽仍未翻转才返回 ContentPolicyError
//
// 超过 MaxAttempts 仍未到达终态返回 TimeoutError。
// ctx 取消时放弃轮询并返回 ctx.Err()，不向提供者发送任何取消请求
func (p *Poller) PollUntilTerminal(ctx context.Context, task *pipeline.Task, onUpdate TaskUpdateFunc) error {
	var (
		rejectedPolls   int // 处于 rejected 状态的累计轮询次数
		missingURLPolls int // 成功但缺少URL的累计轮询次数
	)

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.Interval):
		}

		status, err := p.provider.QueryStatus(ctx, task.ProviderTaskID)
		if err != nil {
			// 单次查询失败视为瞬态，消耗一次轮询机会后继续
			log.Warn().Err(err).
				Str("task_id", task.ID).
				Str("provider_task_id", task.ProviderTaskID).
				Int("attempt", attempt).
				Msg("查询任务状态失败，继续轮询")
			continue
		}

		task.State = status.State
		task.Progress = status.Progress
		if status.ErrorMessage != "" {
			task.ErrorMessage = status.ErrorMessage
		}
		if onUpdate != nil {
			onUpdate(ctx, task)
		}

		switch status.State {
		case pipeline.TaskStateQueued, pipeline.TaskStateGenerating:
			log.Debug().
				Str("task_id", task.ID).
				Str("state", status.State.String()).
				Float64("progress", status.Progress).
				Msg("任务进行中")

		case pipeline.TaskStateSucceeded:
			if status.ResultURL != "" {
				task.ResultURL = status.ResultURL
				if onUpdate != nil {
					onUpdate(ctx, task)
				}
				log.Info().
					Str("task_id", task.ID).
					Int("attempts", attempt).
					Msg("任务生成成功")
				return nil
			}
			// 部分提供者比结果URL提前一个周期上报成功
			missingURLPolls++
			if missingURLPolls > p.cfg.MissingURLRetries {
				task.State = pipeline.TaskStateFailed
				task.ErrorMessage = "succeeded without result url"
				if onUpdate != nil {
					onUpdate(ctx, task)
				}
				return &MissingResultError{TaskID: task.ProviderTaskID}
			}
			log.Warn().
				Str("task_id", task.ID).
				Int("missing_url_polls", missingURLPolls).
				Msg("任务成功但结果URL为空，继续轮询")

		case pipeline.TaskStateFailed:
			return fmt.Errorf("task %s failed: %s", task.ProviderTaskID, status.ErrorMessage)

		case pipeline.TaskStateRejected:
			rejectedPolls++
			if rejectedPolls > p.cfg.RejectGracePolls {
				// 落库状态保留 rejected，审计时能区分审核拒绝和普通失败
				return &ContentPolicyError{TaskID: task.ProviderTaskID, Message: status.ErrorMessage}
			}
			log.Warn().
				Str("task_id", task.ID).
				Int("rejected_polls", rejectedPolls).
				Int("grace", p.cfg.RejectGracePolls).
				Msg("任务被内容审核拒绝，宽限期内继续轮询")
		}
	}

	return &TimeoutError{TaskID: task.ProviderTaskID, Attempts: p.cfg.MaxAttempts}
}
