package cliptools

import (
	"context"

	"pomelo/internal/model/pipeline"
)

// SubmitBaseRequest base 任务提交参数
type SubmitBaseRequest struct {
	Prompt        string // 场景提示词（已包含共享身份描述）
	FirstFrameURL string // 首帧图片 data URL（可选，为空则纯文生视频）
	Seed          int    // 项目共享种子
	DurationSec   int    // 片段时长（秒，不超过单次生成上限）
}

// SubmitExtensionRequest 续接任务提交参数
// Seed 必须与场景的 base 任务一致
type SubmitExtensionRequest struct {
	ParentTaskID   string // 前序任务的提供者任务ID
	Prompt         string // 本段续接提示词
	Seed           int
	DurationSec    int
	ExtensionIndex int // 续接序号（从1开始）
}

// TaskStatus 归一化后的任务状态快照
type TaskStatus struct {
	State        pipeline.TaskState // 闭合枚举，见 pipeline.TaskState
	Progress     float64            // 进度（0-1，提供者未上报时为0）
	ResultURL    string             // 结果片段URL（成功后才有值）
	ErrorMessage string             // 提供者上报的错误信息
}

// VideoTaskProvider 视频生成任务提供者接口
// 每次调用只发一次网络请求，不在此层重试，重试策略属于轮询器。
// 适配器负责把提供者各自的状态词汇归一化成 pipeline.TaskState
type VideoTaskProvider interface {
	// SubmitBase 提交场景的首次生成任务，返回提供者任务ID
	SubmitBase(ctx context.Context, req *SubmitBaseRequest) (string, error)
	// SubmitExtension 提交续接任务，返回提供者任务ID
	SubmitExtension(ctx context.Context, req *SubmitExtensionRequest) (string, error)
	// QueryStatus 查询任务状态（单次查询，不等待）
	QueryStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// LLMProvider 定义了调用大模型的接口
// 具体的「如何调用大模型」由调用方通过实现此接口注入，方便单测和替换实现
type LLMProvider interface {
	// Generate 根据提示词生成文本
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider 图片生成提供者接口
// 用于生成场景首帧图片
type ImageProvider interface {
	// GenerateImage 生成图片，返回二进制数据
	GenerateImage(ctx context.Context, prompt, size string) ([]byte, error)
}
