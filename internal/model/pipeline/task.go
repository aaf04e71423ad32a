package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Task 远程生成任务实体
// base 任务的 ParentTaskID 为空；续接任务的 ParentTaskID 指向同场景
// 前一个任务（base 或上一个续接）的 ProviderTaskID，
// 这条链就是"从这里继续"语义对提供者的表达方式。
// 任务记录只增不删，用于审计和客户端重载后的恢复
type Task struct {
	ID             string     `bson:"id" json:"id"`                                             // 任务ID（UUID，内部主键）
	ProjectID      string     `bson:"project_id" json:"project_id"`                             // 关联的项目ID
	SceneID        string     `bson:"scene_id" json:"scene_id"`                                 // 关联的场景ID
	SceneIndex     int        `bson:"scene_index" json:"scene_index"`                           // 场景序号
	ProviderTaskID string     `bson:"provider_task_id" json:"provider_task_id"`                 // 提供者返回的任务句柄
	Kind           TaskKind   `bson:"kind" json:"kind"`                                         // base / extension
	ExtensionIndex int        `bson:"extension_index,omitempty" json:"extension_index,omitempty"` // 续接序号（从1开始，base 为0）
	ParentTaskID   string     `bson:"parent_task_id,omitempty" json:"parent_task_id,omitempty"` // 前序任务的 ProviderTaskID
	Seed           int        `bson:"seed" json:"seed"`                                         // 生成种子（与项目共享）
	Prompt         string     `bson:"prompt" json:"prompt"`                                     // 本次调用的提示词
	State          TaskState  `bson:"state" json:"state"`                                       // 归一化状态
	Progress       float64    `bson:"progress" json:"progress"`                                 // 进度（0-1）
	ResultURL      string     `bson:"result_url,omitempty" json:"result_url,omitempty"`         // 结果片段URL
	ErrorMessage   string     `bson:"error_message,omitempty" json:"error_message,omitempty"`   // 错误信息
	SubmittedAt    time.Time  `bson:"submitted_at" json:"submitted_at"`                         // 提交时间
	CompletedAt    *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`     // 终态时间
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (t *Task) Collection() string {
	return "tasks"
}

// EnsureIndexes 创建和维护索引
func (t *Task) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(t.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "provider_task_id", Value: 1}},
			Options: options.Index().SetName("idx_provider_task_id"),
		},
		{
			Keys:    bson.D{{Key: "scene_id", Value: 1}, {Key: "extension_index", Value: 1}},
			Options: options.Index().SetName("idx_scene_extension"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "state", Value: 1}},
			Options: options.Index().SetName("idx_project_state"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
