package ark

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ArkVideoConfig Ark 视频生成配置
type ArkVideoConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（可选，默认: https://ark.cn-beijing.volces.com/api/v3）
	Model   string // 模型名称（可选，默认: doubao-seedance-1-0-lite-i2v-250428）
	Ratio   string // 视频比例（可选，默认: 16:9）
}

// ArkVideoConfigFromEnv 从环境变量创建 Ark 视频生成配置
// 支持的环境变量：
//   - ARK_API_KEY: API Key（必需，用于视频生成）
//   - ARK_VIDEO_MODEL: 视频生成模型名称（可选，默认: doubao-seedance-1-0-lite-i2v-250428）
//   - ARK_BASE_URL: API 基础 URL（可选，默认: https://ark.cn-beijing.volces.com/api/v3）
func ArkVideoConfigFromEnv() *ArkVideoConfig {
	apiKey := os.Getenv("ARK_API_KEY")
	model := os.Getenv("ARK_VIDEO_MODEL")
	baseURL := os.Getenv("ARK_BASE_URL")

	if model == "" {
		model = "doubao-seedance-1-0-lite-i2v-250428" // 默认视频生成模型
	}
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	return &ArkVideoConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		Ratio:   "16:9",
	}
}

// TaskError 查询响应中的错误信息
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TaskContent 查询响应中的结果内容
type TaskContent struct {
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration,omitempty"`
}

// TaskPayload 视频生成任务的原始查询结果
// Status 是提供者自己的状态词汇，不做归一化，由上层适配器映射
type TaskPayload struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Error   *TaskError   `json:"error,omitempty"`
	Content *TaskContent `json:"content,omitempty"`
}

// CreateTaskRequest 创建任务的参数
type CreateTaskRequest struct {
	Prompt        string // 提示词
	FirstFrameURL string // 首帧图片 data URL（可选）
	Seed          int    // 生成种子
	DurationSec   int    // 片段时长（秒）
	Ratio         string // 视频比例（为空时使用配置默认值）
}

// ExtendTaskRequest 续接任务的参数
// ParentTaskID 指向同一条链上前一个任务的提供者任务ID
type ExtendTaskRequest struct {
	ParentTaskID string
	Prompt       string
	Seed         int
	DurationSec  int
}

// ArkVideoClient Ark 视频生成任务客户端
// 只负责任务的创建、续接和查询，不在内部轮询等待。
// 任务生命周期由调用方驱动，因此同一个客户端可以被多条场景链并发使用
// 参考官方文档: https://www.volcengine.com/docs/82379/1520757
type ArkVideoClient struct {
	model   string
	baseURL string
	apiKey  string
	ratio   string
	httpc   *http.Client
}

// NewArkVideoClient 创建 Ark 视频生成任务客户端
func NewArkVideoClient(config *ArkVideoConfig) (*ArkVideoClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	ratio := config.Ratio
	if ratio == "" {
		ratio = "16:9"
	}

	return &ArkVideoClient{
		model:   config.Model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  config.APIKey,
		ratio:   ratio,
		// 创建任务时服务器需要处理 base64 图片数据，超时放宽
		httpc: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// CreateTask 创建视频生成任务（异步 API，只返回任务ID）
// API 路径: POST {base}/contents/generations/tasks
func (c *ArkVideoClient) CreateTask(ctx context.Context, req *CreateTaskRequest) (string, error) {
	content := []map[string]interface{}{
		{
			"type": "text",
			"text": req.Prompt,
		},
	}
	if req.FirstFrameURL != "" {
		content = append(content, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": req.FirstFrameURL,
			},
		})
	}

	ratio := req.Ratio
	if ratio == "" {
		ratio = c.ratio
	}

	requestBody := map[string]interface{}{
		"model":     c.model,
		"content":   content,
		"ratio":     ratio,
		"duration":  req.DurationSec,
		"seed":      req.Seed,
		"watermark": false,
	}

	return c.postTask(ctx, requestBody)
}

// ExtendTask 创建续接任务（从父任务的末尾继续生成）
// 与 CreateTask 走同一个端点，通过 continue_from 指定父任务；
// seed 必须与父任务一致，否则画面主体会漂移
func (c *ArkVideoClient) ExtendTask(ctx context.Context, req *ExtendTaskRequest) (string, error) {
	if req.ParentTaskID == "" {
		return "", fmt.Errorf("parent task ID is required")
	}

	requestBody := map[string]interface{}{
		"model": c.model,
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": req.Prompt,
			},
		},
		"continue_from": req.ParentTaskID,
		"duration":      req.DurationSec,
		"seed":          req.Seed,
		"watermark":     false,
	}

	return c.postTask(ctx, requestBody)
}

// GetTask 查询任务状态（单次查询，不等待）
// API 路径: GET {base}/contents/generations/tasks/{task_id}
func (c *ArkVideoClient) GetTask(ctx context.Context, taskID string) (*TaskPayload, error) {
	apiURL := fmt.Sprintf("%s/contents/generations/tasks/%s", c.baseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("task_id", taskID).
			Str("response_body", string(body)).
			Msg("查询任务状态失败")
		return nil, fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload TaskPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &payload, nil
}

// postTask 提交任务请求并解析返回的任务ID
func (c *ArkVideoClient) postTask(ctx context.Context, requestBody map[string]interface{}) (string, error) {
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	apiURL := fmt.Sprintf("%s/contents/generations/tasks", c.baseURL)

	log.Debug().
		Str("api_url", apiURL).
		Str("model", c.model).
		Msg("提交视频生成任务")

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("url", apiURL).
			Str("response_body", string(body)).
			Msg("API 请求失败")
		return "", fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.ID == "" {
		return "", fmt.Errorf("task ID is empty in response")
	}
	return apiResp.ID, nil
}

// ConvertImageToDataURL 将图片数据转换为 data URL
func ConvertImageToDataURL(imageData []byte, mimeType string) string {
	base64Data := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}
