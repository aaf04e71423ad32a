package cliptools

import "fmt"

// ProviderError 提交被提供者拒绝（非 2xx 或返回体缺少任务ID）
type ProviderError struct {
	Op  string // 出错的操作，如 "submit base"
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error during %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// MissingResultError 任务成功但结果URL始终为空
// 部分提供者会比结果URL提前一个轮询周期上报成功，
// 轮询器先做有限次数的额外轮询，仍然为空才返回此错误
type MissingResultError struct {
	TaskID string
}

func (e *MissingResultError) Error() string {
	return fmt.Sprintf("task %s succeeded without result url", e.TaskID)
}

// ContentPolicyError 宽限期结束后仍然处于内容审核拒绝状态
type ContentPolicyError struct {
	TaskID  string
	Message string
}

func (e *ContentPolicyError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("task %s rejected by content policy: %s", e.TaskID, e.Message)
	}
	return fmt.Sprintf("task %s rejected by content policy", e.TaskID)
}

// TimeoutError 轮询次数超过上限仍未到达终态
type TimeoutError struct {
	TaskID   string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s not terminal after %d poll attempts", e.TaskID, e.Attempts)
}

// DownloadError 片段下载失败
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// TranscodeError 转码引擎执行失败
type TranscodeError struct {
	Output string // 引擎的 stderr 尾部，便于定位
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed: %v: %s", e.Err, e.Output)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
