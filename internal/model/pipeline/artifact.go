package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Artifact 成片实体
// 拼接器输出上传到存储后创建，一个项目最多一个
type Artifact struct {
	ID            string         `bson:"id" json:"id"`                         // Artifact ID（UUID）
	ProjectID     string         `bson:"project_id" json:"project_id"`         // 关联的项目ID
	StorageKey    string         `bson:"storage_key" json:"storage_key"`       // 存储中的对象 key
	SizeBytes     int64          `bson:"size_bytes" json:"size_bytes"`         // 文件大小（字节）
	DurationSec   float64        `bson:"duration_sec" json:"duration_sec"`     // 成片总时长（秒）
	ClipCount     int            `bson:"clip_count" json:"clip_count"`         // 参与拼接的片段数
	HasAudio      bool           `bson:"has_audio" json:"has_audio"`           // 是否带音频流
	Transition    TransitionKind `bson:"transition" json:"transition"`         // 使用的转场类型
	TransitionSec float64        `bson:"transition_sec" json:"transition_sec"` // 转场时长（秒）
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// Collection 返回集合名称
func (a *Artifact) Collection() string {
	return "artifacts"
}

// EnsureIndexes 创建和维护索引
func (a *Artifact) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(a.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}},
			Options: options.Index().SetName("idx_project_id"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
