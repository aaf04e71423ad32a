package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pomelo/internal/model/pipeline"
)

// SceneRepository 场景仓库接口
type SceneRepository interface {
	CreateMany(ctx context.Context, scenes []*pipeline.Scene) error
	FindByID(ctx context.Context, id string) (*pipeline.Scene, error)
	FindByProjectID(ctx context.Context, projectID string) ([]*pipeline.Scene, error)
	FindByProjectIDAndState(ctx context.Context, projectID string, state pipeline.SceneState) ([]*pipeline.Scene, error)
	UpdateState(ctx context.Context, id string, state pipeline.SceneState, failureReason string) error
	UpdateFinalClipURL(ctx context.Context, id string, url string) error
	UpdateFirstFrameURL(ctx context.Context, id string, url string) error
}

// SceneRepo 场景仓库实现
type SceneRepo struct {
	coll *mongo.Collection
}

// NewSceneRepo 创建场景仓库
func NewSceneRepo(db *mongo.Database) *SceneRepo {
	var s pipeline.Scene
	return &SceneRepo{coll: db.Collection(s.Collection())}
}

// CreateMany 批量创建场景（规划器一次产出一个项目的全部场景）
func (r *SceneRepo) CreateMany(ctx context.Context, scenes []*pipeline.Scene) error {
	if len(scenes) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(scenes))
	for _, s := range scenes {
		s.CreatedAt = now
		s.UpdatedAt = now
		if s.State == "" {
			s.State = pipeline.SceneStatePending
		}
		docs = append(docs, s)
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

// FindByID 根据ID查询场景
func (r *SceneRepo) FindByID(ctx context.Context, id string) (*pipeline.Scene, error) {
	var s pipeline.Scene
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByProjectID 查询项目的全部场景（按序号排列）
func (r *SceneRepo) FindByProjectID(ctx context.Context, projectID string) ([]*pipeline.Scene, error) {
	filter := bson.M{"project_id": projectID}
	opts := options.Find().SetSort(bson.M{"index": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scenes []*pipeline.Scene
	if err := cursor.All(ctx, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// FindByProjectIDAndState 按状态查询项目的场景（按序号排列）
func (r *SceneRepo) FindByProjectIDAndState(ctx context.Context, projectID string, state pipeline.SceneState) ([]*pipeline.Scene, error) {
	filter := bson.M{"project_id": projectID, "state": state}
	opts := options.Find().SetSort(bson.M{"index": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scenes []*pipeline.Scene
	if err := cursor.All(ctx, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// UpdateState 更新场景状态
func (r *SceneRepo) UpdateState(ctx context.Context, id string, state pipeline.SceneState, failureReason string) error {
	update := bson.M{
		"state":      state,
		"updated_at": time.Now(),
	}
	if failureReason != "" {
		update["failure_reason"] = failureReason
	}
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": update},
	)
	return err
}

// UpdateFinalClipURL 写入场景的最终片段URL
func (r *SceneRepo) UpdateFinalClipURL(ctx context.Context, id string, url string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"final_clip_url": url,
			"updated_at":     time.Now(),
		}},
	)
	return err
}

// UpdateFirstFrameURL 写入场景的首帧图片
func (r *SceneRepo) UpdateFirstFrameURL(ctx context.Context, id string, url string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"first_frame_url": url,
			"updated_at":      time.Now(),
		}},
	)
	return err
}
