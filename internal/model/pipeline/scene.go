package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Scene 场景实体
// 规划器产出后不可变（状态字段和结果字段除外）
// ContinuationPrompts 按续接序号排列：第 k 次续接使用下标 k-1 的提示词，
// 列表耗尽时回退到通用续接提示词
type Scene struct {
	ID                  string     `bson:"id" json:"id"`                                             // 场景ID（UUID）
	ProjectID           string     `bson:"project_id" json:"project_id"`                             // 关联的项目ID
	Index               int        `bson:"index" json:"index"`                                       // 场景序号（从0开始）
	DurationSec         int        `bson:"duration_sec" json:"duration_sec"`                         // 场景时长（秒）
	BasePrompt          string     `bson:"base_prompt" json:"base_prompt"`                           // base 任务提示词
	Style               Style      `bson:"style" json:"style"`                                       // 视觉风格（与项目一致，便于单独审计场景）
	ContinuationPrompts []string   `bson:"continuation_prompts,omitempty" json:"continuation_prompts,omitempty"` // 逐段续接提示词
	VisualSeed          int        `bson:"visual_seed" json:"visual_seed"`                           // 共享种子（与项目一致）
	FirstFrameURL       string     `bson:"first_frame_url,omitempty" json:"first_frame_url,omitempty"` // 首帧图片（data URL，可选）
	State               SceneState `bson:"state" json:"state"`                                       // 场景状态
	FinalClipURL        string     `bson:"final_clip_url,omitempty" json:"final_clip_url,omitempty"` // 最终片段URL
	FailureReason       string     `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"` // 失败原因
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (s *Scene) Collection() string {
	return "scenes"
}

// EnsureIndexes 创建和维护索引
func (s *Scene) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "index", Value: 1}},
			Options: options.Index().SetName("idx_project_index"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "state", Value: 1}},
			Options: options.Index().SetName("idx_project_state"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
