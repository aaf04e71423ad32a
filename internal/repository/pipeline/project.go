package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pomelo/internal/model/pipeline"
)

// ProjectRepository 项目仓库接口
type ProjectRepository interface {
	Create(ctx context.Context, p *pipeline.Project) error
	FindByID(ctx context.Context, id string) (*pipeline.Project, error)
	List(ctx context.Context, page, pageSize int) ([]*pipeline.Project, int64, error)
	UpdateStatus(ctx context.Context, id string, status pipeline.ProjectStatus, errorMsg string) error
	UpdatePlan(ctx context.Context, id string, sceneCount, visualSeed int, identityPhrase string) error
	UpdateSceneCounts(ctx context.Context, id string, succeeded, failed int) error
	UpdateArtifactID(ctx context.Context, id string, artifactID string) error
	Delete(ctx context.Context, id string) error
}

// ProjectRepo 项目仓库实现
type ProjectRepo struct {
	coll *mongo.Collection
}

// NewProjectRepo 创建项目仓库
func NewProjectRepo(db *mongo.Database) *ProjectRepo {
	var p pipeline.Project
	return &ProjectRepo{coll: db.Collection(p.Collection())}
}

// Create 创建项目记录
func (r *ProjectRepo) Create(ctx context.Context, p *pipeline.Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = pipeline.ProjectStatusPending // 默认状态为待处理
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

// FindByID 根据ID查询项目
func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*pipeline.Project, error) {
	var p pipeline.Project
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List 分页查询项目列表（按创建时间倒序）
func (r *ProjectRepo) List(ctx context.Context, page, pageSize int) ([]*pipeline.Project, int64, error) {
	filter := bson.M{"deleted_at": nil}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var projects []*pipeline.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// UpdateStatus 更新项目状态
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, status pipeline.ProjectStatus, errorMsg string) error {
	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		update["error_message"] = errorMsg
	}
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": update},
	)
	return err
}

// UpdatePlan 写入规划结果（场景数、种子和身份描述）
func (r *ProjectRepo) UpdatePlan(ctx context.Context, id string, sceneCount, visualSeed int, identityPhrase string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"scene_count":     sceneCount,
			"visual_seed":     visualSeed,
			"identity_phrase": identityPhrase,
			"updated_at":      time.Now(),
		}},
	)
	return err
}

// UpdateSceneCounts 更新成功和失败的场景计数
func (r *ProjectRepo) UpdateSceneCounts(ctx context.Context, id string, succeeded, failed int) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"succeeded_scenes": succeeded,
			"failed_scenes":    failed,
			"updated_at":       time.Now(),
		}},
	)
	return err
}

// UpdateArtifactID 关联成片 artifact
func (r *ProjectRepo) UpdateArtifactID(ctx context.Context, id string, artifactID string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"artifact_id": artifactID,
			"updated_at":  time.Now(),
		}},
	)
	return err
}

// Delete 软删除项目
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}
