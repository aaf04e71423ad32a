package pipeline

import (
	"time"

	"pomelo/internal/model/pipeline"
	httputil "pomelo/internal/pkg/http"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// ProjectInfo 项目信息 DTO
type ProjectInfo struct {
	ID               string `json:"id"`                      // 项目ID
	Topic            string `json:"topic"`                   // 主题
	Style            string `json:"style"`                   // 视觉风格
	TotalDurationSec int    `json:"total_duration_sec"`      // 请求的总时长（秒）
	VisualSeed       int    `json:"visual_seed"`             // 共享生成种子
	IdentityPhrase   string `json:"identity_phrase"`         // 共享视觉身份描述
	Status           string `json:"status"`                  // 项目状态
	SceneCount       int    `json:"scene_count"`             // 场景数
	SucceededScenes  int    `json:"succeeded_scenes"`        // 成功场景数
	FailedScenes     int    `json:"failed_scenes"`           // 失败场景数
	ArtifactID       string `json:"artifact_id,omitempty"`   // 成片ID
	ErrorMessage     string `json:"error_message,omitempty"` // 错误信息
	CreatedAt        string `json:"created_at"`              // 创建时间
	UpdatedAt        string `json:"updated_at"`              // 更新时间
}

// toProjectInfo 将 Project 实体转换为 ProjectInfo DTO
func toProjectInfo(p *pipeline.Project) ProjectInfo {
	return ProjectInfo{
		ID:               p.ID,
		Topic:            p.Topic,
		Style:            string(p.Style),
		TotalDurationSec: p.TotalDurationSec,
		VisualSeed:       p.VisualSeed,
		IdentityPhrase:   p.IdentityPhrase,
		Status:           string(p.Status),
		SceneCount:       p.SceneCount,
		SucceededScenes:  p.SucceededScenes,
		FailedScenes:     p.FailedScenes,
		ArtifactID:       p.ArtifactID,
		ErrorMessage:     p.ErrorMessage,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

// toProjectInfoList 将 Project 列表转换为 ProjectInfo DTO 列表
func toProjectInfoList(projects []*pipeline.Project) []ProjectInfo {
	result := make([]ProjectInfo, len(projects))
	for i, p := range projects {
		result[i] = toProjectInfo(p)
	}
	return result
}

// TaskInfo 任务信息 DTO
type TaskInfo struct {
	ID             string  `json:"id"`                        // 任务ID
	ProviderTaskID string  `json:"provider_task_id"`          // 提供者任务ID
	Kind           string  `json:"kind"`                      // base / extension
	ExtensionIndex int     `json:"extension_index,omitempty"` // 续接序号
	ParentTaskID   string  `json:"parent_task_id,omitempty"`  // 前序任务ID
	State          string  `json:"state"`                     // 任务状态
	Progress       float64 `json:"progress"`                  // 进度（0-1）
	ResultURL      string  `json:"result_url,omitempty"`      // 结果片段URL
	ErrorMessage   string  `json:"error_message,omitempty"`   // 错误信息
	SubmittedAt    string  `json:"submitted_at"`              // 提交时间
}

// toTaskInfo 将 Task 实体转换为 TaskInfo DTO
func toTaskInfo(t *pipeline.Task) TaskInfo {
	return TaskInfo{
		ID:             t.ID,
		ProviderTaskID: t.ProviderTaskID,
		Kind:           string(t.Kind),
		ExtensionIndex: t.ExtensionIndex,
		ParentTaskID:   t.ParentTaskID,
		State:          string(t.State),
		Progress:       t.Progress,
		ResultURL:      t.ResultURL,
		ErrorMessage:   t.ErrorMessage,
		SubmittedAt:    t.SubmittedAt.Format(time.RFC3339),
	}
}

// SceneInfo 场景信息 DTO（含任务链）
type SceneInfo struct {
	ID            string     `json:"id"`                       // 场景ID
	Index         int        `json:"index"`                    // 场景序号
	DurationSec   int        `json:"duration_sec"`             // 场景时长（秒）
	BasePrompt    string     `json:"base_prompt"`              // base 任务提示词
	Style         string     `json:"style"`                    // 视觉风格
	State         string     `json:"state"`                    // 场景状态
	FinalClipURL  string     `json:"final_clip_url,omitempty"` // 最终片段URL
	FailureReason string     `json:"failure_reason,omitempty"` // 失败原因
	Tasks         []TaskInfo `json:"tasks"`                    // 任务链（base 在前，续接按序号排列）
}

// toSceneInfo 将 Scene 实体和它的任务链转换为 SceneInfo DTO
func toSceneInfo(s *pipeline.Scene, tasks []*pipeline.Task) SceneInfo {
	taskInfos := make([]TaskInfo, len(tasks))
	for i, t := range tasks {
		taskInfos[i] = toTaskInfo(t)
	}
	return SceneInfo{
		ID:            s.ID,
		Index:         s.Index,
		DurationSec:   s.DurationSec,
		BasePrompt:    s.BasePrompt,
		Style:         string(s.Style),
		State:         string(s.State),
		FinalClipURL:  s.FinalClipURL,
		FailureReason: s.FailureReason,
		Tasks:         taskInfos,
	}
}
