package providers

import (
	"context"
	"fmt"
	"strings"

	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/ark"
	"pomelo/internal/pkg/cliptools"
)

// ArkVideoProvider Ark 视频生成任务提供者
// 适配层，调用 ark.ArkVideoClient 并把提供者的状态词汇归一化成闭合枚举。
// 实现了 cliptools.VideoTaskProvider 接口
type ArkVideoProvider struct {
	client *ark.ArkVideoClient
}

// NewArkVideoProvider 创建 Ark 视频生成任务提供者
func NewArkVideoProvider(client *ark.ArkVideoClient) *ArkVideoProvider {
	return &ArkVideoProvider{client: client}
}

// NewArkVideoProviderFromEnv 从环境变量创建 Ark 视频生成任务提供者
func NewArkVideoProviderFromEnv() (cliptools.VideoTaskProvider, error) {
	config := ark.ArkVideoConfigFromEnv()
	client, err := ark.NewArkVideoClient(config)
	if err != nil {
		return nil, fmt.Errorf("create Ark Video client: %w", err)
	}
	return &ArkVideoProvider{client: client}, nil
}

// SubmitBase 提交场景的首次生成任务
// 实现了 cliptools.VideoTaskProvider 接口
func (p *ArkVideoProvider) SubmitBase(ctx context.Context, req *cliptools.SubmitBaseRequest) (string, error) {
	taskID, err := p.client.CreateTask(ctx, &ark.CreateTaskRequest{
		Prompt:        req.Prompt,
		FirstFrameURL: req.FirstFrameURL,
		Seed:          req.Seed,
		DurationSec:   req.DurationSec,
	})
	if err != nil {
		return "", fmt.Errorf("Ark create task: %w", err)
	}
	return taskID, nil
}

// SubmitExtension 提交续接任务
// 实现了 cliptools.VideoTaskProvider 接口
func (p *ArkVideoProvider) SubmitExtension(ctx context.Context, req *cliptools.SubmitExtensionRequest) (string, error) {
	taskID, err := p.client.ExtendTask(ctx, &ark.ExtendTaskRequest{
		ParentTaskID: req.ParentTaskID,
		Prompt:       req.Prompt,
		Seed:         req.Seed,
		DurationSec:  req.DurationSec,
	})
	if err != nil {
		return "", fmt.Errorf("Ark extend task: %w", err)
	}
	return taskID, nil
}

// QueryStatus 查询任务状态并归一化
// 实现了 cliptools.VideoTaskProvider 接口
func (p *ArkVideoProvider) QueryStatus(ctx context.Context, taskID string) (*cliptools.TaskStatus, error) {
	payload, err := p.client.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("Ark get task: %w", err)
	}

	status := &cliptools.TaskStatus{
		State: NormalizeArkStatus(payload.Status, payload.Error),
	}
	if payload.Content != nil {
		status.ResultURL = payload.Content.VideoURL
	}
	if payload.Error != nil {
		status.ErrorMessage = payload.Error.Message
	}
	// 提供者不按百分比上报进度，用状态粗略换算便于观测
	switch status.State {
	case pipeline.TaskStateGenerating:
		status.Progress = 0.5
	case pipeline.TaskStateSucceeded:
		status.Progress = 1.0
	}
	return status, nil
}

// NormalizeArkStatus 把提供者的状态词汇映射到闭合的 TaskState 枚举
//
// 映射规则：
//   - queued / pending / submitted → Queued
//   - running / generating / processing → Generating
//   - succeeded / completed / success → Succeeded
//   - failed / error / cancelled → Failed
//   - rejected，或错误码含审核语义 → Rejected
//
// 未知词汇按 Generating 处理，让轮询器继续观察而不是误判终态
func NormalizeArkStatus(status string, taskErr *ark.TaskError) pipeline.TaskState {
	if taskErr != nil && isModerationCode(taskErr.Code) {
		return pipeline.TaskStateRejected
	}

	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "pending", "submitted":
		return pipeline.TaskStateQueued
	case "running", "generating", "processing":
		return pipeline.TaskStateGenerating
	case "succeeded", "completed", "success":
		return pipeline.TaskStateSucceeded
	case "failed", "error", "cancelled":
		return pipeline.TaskStateFailed
	case "rejected":
		return pipeline.TaskStateRejected
	default:
		return pipeline.TaskStateGenerating
	}
}

// isModerationCode 判断错误码是否为内容审核类
func isModerationCode(code string) bool {
	lower := strings.ToLower(code)
	return strings.Contains(lower, "moderation") ||
		strings.Contains(lower, "sensitive") ||
		strings.Contains(lower, "content_policy") ||
		strings.Contains(lower, "outputvideosensitive") ||
		strings.Contains(lower, "inputtextsensitive")
}
