package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pomelo/internal/model/pipeline"
)

// ArtifactRepository 成片仓库接口
type ArtifactRepository interface {
	Create(ctx context.Context, a *pipeline.Artifact) error
	FindByID(ctx context.Context, id string) (*pipeline.Artifact, error)
	FindByProjectID(ctx context.Context, projectID string) (*pipeline.Artifact, error)
}

// ArtifactRepo 成片仓库实现
type ArtifactRepo struct {
	coll *mongo.Collection
}

// NewArtifactRepo 创建成片仓库
func NewArtifactRepo(db *mongo.Database) *ArtifactRepo {
	var a pipeline.Artifact
	return &ArtifactRepo{coll: db.Collection(a.Collection())}
}

// Create 创建成片记录
func (r *ArtifactRepo) Create(ctx context.Context, a *pipeline.Artifact) error {
	a.CreatedAt = time.Now()
	_, err := r.coll.InsertOne(ctx, a)
	return err
}

// FindByID 根据ID查询成片
func (r *ArtifactRepo) FindByID(ctx context.Context, id string) (*pipeline.Artifact, error) {
	var a pipeline.Artifact
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByProjectID 查询项目的成片
func (r *ArtifactRepo) FindByProjectID(ctx context.Context, projectID string) (*pipeline.Artifact, error) {
	var a pipeline.Artifact
	if err := r.coll.FindOne(ctx, bson.M{"project_id": projectID}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}
