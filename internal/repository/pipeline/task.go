package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pomelo/internal/model/pipeline"
)

// TaskRepository 任务仓库接口
type TaskRepository interface {
	Create(ctx context.Context, t *pipeline.Task) error
	FindByID(ctx context.Context, id string) (*pipeline.Task, error)
	FindBySceneID(ctx context.Context, sceneID string) ([]*pipeline.Task, error)
	FindByProjectID(ctx context.Context, projectID string) ([]*pipeline.Task, error)
	UpdateState(ctx context.Context, id string, state pipeline.TaskState, progress float64, errorMsg string) error
	UpdateResult(ctx context.Context, id string, resultURL string) error
}

// TaskRepo 任务仓库实现
type TaskRepo struct {
	coll *mongo.Collection
}

// NewTaskRepo 创建任务仓库
func NewTaskRepo(db *mongo.Database) *TaskRepo {
	var t pipeline.Task
	return &TaskRepo{coll: db.Collection(t.Collection())}
}

// Create 创建任务记录
func (r *TaskRepo) Create(ctx context.Context, t *pipeline.Task) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = now
	}
	if t.State == "" {
		t.State = pipeline.TaskStateQueued // 默认状态为排队中
	}
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

// FindByID 根据ID查询任务
func (r *TaskRepo) FindByID(ctx context.Context, id string) (*pipeline.Task, error) {
	var t pipeline.Task
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindBySceneID 查询场景的全部任务（base 在前，续接按序号排列）
func (r *TaskRepo) FindBySceneID(ctx context.Context, sceneID string) ([]*pipeline.Task, error) {
	filter := bson.M{"scene_id": sceneID}
	opts := options.Find().SetSort(bson.M{"extension_index": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*pipeline.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindByProjectID 查询项目的全部任务
func (r *TaskRepo) FindByProjectID(ctx context.Context, projectID string) ([]*pipeline.Task, error) {
	filter := bson.M{"project_id": projectID}
	opts := options.Find().SetSort(bson.D{{Key: "scene_index", Value: 1}, {Key: "extension_index", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*pipeline.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateState 更新任务状态和进度
func (r *TaskRepo) UpdateState(ctx context.Context, id string, state pipeline.TaskState, progress float64, errorMsg string) error {
	update := bson.M{
		"state":      state,
		"progress":   progress,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		update["error_message"] = errorMsg
	}
	if state.IsTerminal() {
		update["completed_at"] = time.Now()
	}
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": update},
	)
	return err
}

// UpdateResult 写入任务的结果片段URL
func (r *TaskRepo) UpdateResult(ctx context.Context, id string, resultURL string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"result_url": resultURL,
			"updated_at": time.Now(),
		}},
	)
	return err
}
