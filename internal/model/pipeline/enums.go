package pipeline

// TaskState 远程生成任务状态（归一化后的闭合枚举）
// 所有提供者返回的状态词汇都在客户端适配层映射到这五种状态
type TaskState string

const (
	TaskStateQueued     TaskState = "queued"     // 排队中
	TaskStateGenerating TaskState = "generating" // 生成中
	TaskStateSucceeded  TaskState = "succeeded"  // 成功
	TaskStateFailed     TaskState = "failed"     // 失败
	TaskStateRejected   TaskState = "rejected"   // 内容审核拒绝（有宽限期，见 poller）
)

// String 返回状态的字符串表示
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal 判断状态是否为终态
// rejected 不在此列：它有宽限期，由轮询器决定何时视为终态
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSucceeded || s == TaskStateFailed
}

// TaskKind 任务类型
type TaskKind string

const (
	TaskKindBase      TaskKind = "base"      // 场景的首次生成任务
	TaskKindExtension TaskKind = "extension" // 续接任务（依赖前序任务）
)

// String 返回类型的字符串表示
func (k TaskKind) String() string {
	return string(k)
}

// SceneState 场景状态
type SceneState string

const (
	SceneStatePending    SceneState = "pending"    // 待处理
	SceneStateGenerating SceneState = "generating" // base 任务进行中
	SceneStateExtending  SceneState = "extending"  // 续接链进行中
	SceneStateCompleted  SceneState = "completed"  // 已完成（final_clip_url 可用）
	SceneStateFailed     SceneState = "failed"     // 失败（不影响兄弟场景）
)

// String 返回状态的字符串表示
func (s SceneState) String() string {
	return string(s)
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"    // 已创建，未开始
	ProjectStatusPlanning  ProjectStatus = "planning"   // 场景规划中
	ProjectStatusRunning   ProjectStatus = "generating" // 场景生成中
	ProjectStatusStitching ProjectStatus = "stitching"  // 拼接中
	ProjectStatusCompleted ProjectStatus = "completed"  // 已完成
	ProjectStatusFailed    ProjectStatus = "failed"     // 失败
	ProjectStatusCancelled ProjectStatus = "cancelled"  // 已取消
)

// String 返回状态的字符串表示
func (s ProjectStatus) String() string {
	return string(s)
}

// Style 视觉风格
type Style string

const (
	StyleCinematic   Style = "cinematic"   // 电影感
	StyleAnime       Style = "anime"       // 动漫
	StyleRealistic   Style = "realistic"   // 写实
	StyleDocumentary Style = "documentary" // 纪录片
)

// String 返回风格的字符串表示
func (s Style) String() string {
	return string(s)
}

// IsValid 判断是否为已知风格
func (s Style) IsValid() bool {
	switch s {
	case StyleCinematic, StyleAnime, StyleRealistic, StyleDocumentary:
		return true
	}
	return false
}

// TransitionKind 转场类型（对应 ffmpeg xfade 的 transition 名称）
type TransitionKind string

const (
	TransitionFade     TransitionKind = "fade"
	TransitionDissolve TransitionKind = "dissolve"
	TransitionWipeLeft TransitionKind = "wipeleft"
	TransitionSlideUp  TransitionKind = "slideup"
)

// String 返回转场类型的字符串表示
func (t TransitionKind) String() string {
	return string(t)
}
