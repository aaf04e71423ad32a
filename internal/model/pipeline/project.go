package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Project 视频生成项目实体
// 一个项目对应一次用户发起的"描述→成片"请求
// VisualSeed 和 IdentityPhrase 在规划时生成一次，之后只读：
// 它们被传入项目内每一次生成调用，用于保持画面主体的一致性
type Project struct {
	ID               string        `bson:"id" json:"id"`                                             // 项目ID（UUID）
	Topic            string        `bson:"topic" json:"topic"`                                       // 用户描述的主题
	Style            Style         `bson:"style" json:"style"`                                       // 视觉风格
	TotalDurationSec int           `bson:"total_duration_sec" json:"total_duration_sec"`             // 请求的总时长（秒）
	VisualSeed       int           `bson:"visual_seed" json:"visual_seed"`                           // 共享生成种子（10000-99999）
	IdentityPhrase   string        `bson:"identity_phrase" json:"identity_phrase"`                   // 共享视觉身份描述
	Status           ProjectStatus `bson:"status" json:"status"`                                     // 项目状态
	SceneCount       int           `bson:"scene_count" json:"scene_count"`                           // 规划出的场景数
	SucceededScenes  int           `bson:"succeeded_scenes" json:"succeeded_scenes"`                 // 成功场景数
	FailedScenes     int           `bson:"failed_scenes" json:"failed_scenes"`                       // 失败场景数
	ArtifactID       string        `bson:"artifact_id,omitempty" json:"artifact_id,omitempty"`       // 成片 artifact ID
	ErrorMessage     string        `bson:"error_message,omitempty" json:"error_message,omitempty"`   // 错误信息
	CreatedAt        time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `bson:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time    `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (p *Project) Collection() string {
	return "projects"
}

// EnsureIndexes 创建和维护索引
func (p *Project) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(p.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
