package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"pomelo/internal/config"
	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/cache"
	"pomelo/internal/pkg/cliptools"
	"pomelo/internal/pkg/ffmpeg"
	"pomelo/internal/pkg/id"
	"pomelo/internal/pkg/storage"
	pipelinerepo "pomelo/internal/repository/pipeline"
)

// PipelineService 视频生成流水线服务接口
type PipelineService interface {
	// CreateProject 创建项目并异步启动流水线
	CreateProject(ctx context.Context, topic string, totalDurationSec int, style pipeline.Style) (*pipeline.Project, error)

	// GetProject 获取项目状态（含成功/失败场景计数）
	GetProject(ctx context.Context, projectID string) (*pipeline.Project, error)

	// ListProjects 分页获取项目列表
	ListProjects(ctx context.Context, page, pageSize int) ([]*pipeline.Project, int64, error)

	// GetScenes 获取项目的场景及每个场景的任务链（用于审计）
	GetScenes(ctx context.Context, projectID string) ([]*pipeline.Scene, map[string][]*pipeline.Task, error)

	// CancelProject 取消项目：停止新的提交和轮询，放弃在途轮询，
	// 不向提供者发送任何取消请求（提供者没有取消契约）
	CancelProject(ctx context.Context, projectID string) error

	// ResumeProject 从持久化状态恢复中断的项目
	ResumeProject(ctx context.Context, projectID string) error

	// DeleteProject 软删除项目，运行中的先取消
	DeleteProject(ctx context.Context, projectID string) error

	// GetArtifactURL 获取成片的预签名下载URL
	GetArtifactURL(ctx context.Context, projectID string) (string, error)
}

// pipelineService 流水线服务实现
type pipelineService struct {
	projectRepo  pipelinerepo.ProjectRepository
	sceneRepo    pipelinerepo.SceneRepository
	taskRepo     pipelinerepo.TaskRepository
	artifactRepo pipelinerepo.ArtifactRepository

	provider      cliptools.VideoTaskProvider
	imageProvider cliptools.ImageProvider // 可选，首帧图片
	enhancer      *cliptools.PromptEnhancer
	planner       *cliptools.Planner
	poller        *cliptools.Poller
	chain         *cliptools.Chain
	stitcher      *cliptools.Stitcher

	store storage.Storage
	cache *cache.RedisCache // 可选，进度缓存尽力而为
	cfg   *config.Config

	// 取消登记表：projectID -> 该项目运行上下文的取消函数
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Deps 流水线服务的外部依赖
// imageProvider、enhancer 的 LLM、redis 都是可选项，缺失时对应能力降级
type Deps struct {
	DB            *mongo.Database
	Provider      cliptools.VideoTaskProvider
	ImageProvider cliptools.ImageProvider
	LLMProvider   cliptools.LLMProvider
	Store         storage.Storage
	Cache         *cache.RedisCache
}

// NewPipelineService 创建流水线服务
func NewPipelineService(cfg *config.Config, deps Deps) (PipelineService, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("mongo database is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("video task provider is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	poller := cliptools.NewPoller(deps.Provider, cliptools.PollerConfig{
		Interval:          cfg.Pipeline.PollInterval,
		MaxAttempts:       cfg.Pipeline.MaxPollAttempts,
		RejectGracePolls:  cfg.Pipeline.RejectGracePolls,
		MissingURLRetries: cfg.Pipeline.MissingURLRetries,
	})

	return &pipelineService{
		projectRepo:   pipelinerepo.NewProjectRepo(deps.DB),
		sceneRepo:     pipelinerepo.NewSceneRepo(deps.DB),
		taskRepo:      pipelinerepo.NewTaskRepo(deps.DB),
		artifactRepo:  pipelinerepo.NewArtifactRepo(deps.DB),
		provider:      deps.Provider,
		imageProvider: deps.ImageProvider,
		enhancer:      cliptools.NewPromptEnhancer(deps.LLMProvider),
		planner:       cliptools.NewPlanner(cfg.Pipeline.BaseUnitSeconds),
		poller:        poller,
		chain:         cliptools.NewChain(deps.Provider, poller, cfg.Pipeline.BaseUnitSeconds),
		stitcher: cliptools.NewStitcher(ffmpeg.NewClient(), cliptools.StitchConfig{
			Transition:    pipeline.TransitionKind(cfg.Pipeline.Transition),
			TransitionSec: cfg.Pipeline.TransitionDuration,
			WorkDir:       cfg.Pipeline.WorkDir,
		}),
		store:   deps.Store,
		cache:   deps.Cache,
		cfg:     cfg,
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

// CreateProject 创建项目并异步启动流水线
func (s *pipelineService) CreateProject(ctx context.Context, topic string, totalDurationSec int, style pipeline.Style) (*pipeline.Project, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if totalDurationSec <= 0 {
		return nil, fmt.Errorf("total duration must be positive")
	}
	if !style.IsValid() {
		return nil, fmt.Errorf("unknown style: %s", style)
	}

	project := &pipeline.Project{
		ID:               id.New(),
		Topic:            topic,
		Style:            style,
		TotalDurationSec: totalDurationSec,
		Status:           pipeline.ProjectStatusPending,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.startRun(project.ID)
	return project, nil
}

// startRun 在登记取消函数后异步启动流水线运行
func (s *pipelineService) startRun(projectID string) {
	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[projectID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.cancels, projectID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.run(runCtx, projectID); err != nil {
			log.Error().Err(err).Str("project_id", projectID).Msg("流水线运行失败")
		}
	}()
}

// GetProject 获取项目状态
func (s *pipelineService) GetProject(ctx context.Context, projectID string) (*pipeline.Project, error) {
	return s.projectRepo.FindByID(ctx, projectID)
}

// ListProjects 分页获取项目列表
func (s *pipelineService) ListProjects(ctx context.Context, page, pageSize int) ([]*pipeline.Project, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.projectRepo.List(ctx, page, pageSize)
}

// GetScenes 获取项目的场景及任务链
func (s *pipelineService) GetScenes(ctx context.Context, projectID string) ([]*pipeline.Scene, map[string][]*pipeline.Task, error) {
	scenes, err := s.sceneRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("find scenes: %w", err)
	}

	tasks, err := s.taskRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("find tasks: %w", err)
	}

	chains := make(map[string][]*pipeline.Task, len(scenes))
	for _, t := range tasks {
		chains[t.SceneID] = append(chains[t.SceneID], t)
	}
	return scenes, chains, nil
}

// CancelProject 取消项目
func (s *pipelineService) CancelProject(ctx context.Context, projectID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("find project: %w", err)
	}

	switch project.Status {
	case pipeline.ProjectStatusCompleted, pipeline.ProjectStatusFailed, pipeline.ProjectStatusCancelled:
		return fmt.Errorf("project %s already terminal (status=%s)", projectID, project.Status)
	}

	s.mu.Lock()
	cancel, running := s.cancels[projectID]
	s.mu.Unlock()
	if running {
		cancel()
	}

	if err := s.projectRepo.UpdateStatus(ctx, projectID, pipeline.ProjectStatusCancelled, ""); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	log.Info().Str("project_id", projectID).Bool("was_running", running).Msg("项目已取消")
	return nil
}

// DeleteProject 软删除项目
// 运行中的项目先取消，任务记录保留（只增不删，用于审计）
func (s *pipelineService) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return fmt.Errorf("find project: %w", err)
	}

	s.mu.Lock()
	cancel, running := s.cancels[projectID]
	s.mu.Unlock()
	if running {
		cancel()
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	log.Info().Str("project_id", projectID).Bool("was_running", running).Msg("项目已删除")
	return nil
}

// GetArtifactURL 获取成片的预签名下载URL
func (s *pipelineService) GetArtifactURL(ctx context.Context, projectID string) (string, error) {
	artifact, err := s.artifactRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("find artifact: %w", err)
	}

	url, err := s.store.GetPresignedDownloadURL(ctx, artifact.StorageKey, time.Hour)
	if err != nil {
		return "", fmt.Errorf("presign download url: %w", err)
	}
	return url, nil
}

// taskRecorder cliptools.TaskRecorder 的仓库实现
type taskRecorder struct {
	taskRepo pipelinerepo.TaskRepository
}

// CreateTask 记录新提交的任务
func (r *taskRecorder) CreateTask(ctx context.Context, t *pipeline.Task) error {
	return r.taskRepo.Create(ctx, t)
}

// UpdateTask 记录任务状态变化，落库失败只记日志
func (r *taskRecorder) UpdateTask(ctx context.Context, t *pipeline.Task) {
	if err := r.taskRepo.UpdateState(ctx, t.ID, t.State, t.Progress, t.ErrorMessage); err != nil {
		log.Warn().Err(err).Str("task_id", t.ID).Msg("更新任务状态失败")
		return
	}
	if t.ResultURL != "" {
		if err := r.taskRepo.UpdateResult(ctx, t.ID, t.ResultURL); err != nil {
			log.Warn().Err(err).Str("task_id", t.ID).Msg("更新任务结果失败")
		}
	}
}

// projectProgress 写入进度缓存的结构
type projectProgress struct {
	ProjectID string             `json:"project_id"`
	Scenes    map[int]sceneState `json:"scenes"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type sceneState struct {
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
}

// cacheProgress 更新进度缓存（尽力而为，redis 不可用时跳过）
func (s *pipelineService) cacheProgress(ctx context.Context, projectID string, sceneIndex int, state pipeline.SceneState, progress float64) {
	if s.cache == nil {
		return
	}

	key := cache.ProjectProgressKey(projectID)
	var prog projectProgress
	if err := s.cache.Get(ctx, key, &prog); err != nil || prog.Scenes == nil {
		prog = projectProgress{ProjectID: projectID, Scenes: make(map[int]sceneState)}
	}
	prog.Scenes[sceneIndex] = sceneState{State: state.String(), Progress: progress}
	prog.UpdatedAt = time.Now()

	if err := s.cache.Set(ctx, key, &prog, cache.ProjectProgressTTL); err != nil {
		log.Debug().Err(err).Str("project_id", projectID).Msg("写入进度缓存失败")
	}
}
