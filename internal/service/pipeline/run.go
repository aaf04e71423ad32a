package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/ark"
	"pomelo/internal/pkg/cliptools"
	"pomelo/internal/pkg/id"
)

// run 执行一次完整的流水线运行
//
// 整个流程是可重入的：规划、场景生成、拼接都先读持久化状态再决定下一步，
// 所以恢复中断的项目和启动新项目走同一条路径
func (s *pipelineService) run(ctx context.Context, projectID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("find project: %w", err)
	}

	scenes, err := s.ensurePlanned(ctx, project)
	if err != nil {
		s.failProject(projectID, fmt.Sprintf("planning: %v", err))
		return err
	}

	return s.generateAndStitch(ctx, project, scenes)
}

// ensurePlanned 返回项目的场景列表，尚未规划时先规划并落库
func (s *pipelineService) ensurePlanned(ctx context.Context, project *pipeline.Project) ([]*pipeline.Scene, error) {
	scenes, err := s.sceneRepo.FindByProjectID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("find scenes: %w", err)
	}
	if len(scenes) > 0 {
		return scenes, nil
	}

	if err := s.projectRepo.UpdateStatus(ctx, project.ID, pipeline.ProjectStatusPlanning, ""); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	plan, err := s.planner.Plan(project.Topic, project.TotalDurationSec, project.Style, rng)
	if err != nil {
		return nil, fmt.Errorf("plan scenes: %w", err)
	}

	if err := s.projectRepo.UpdatePlan(ctx, project.ID, len(plan.Scenes), plan.VisualSeed, plan.IdentityPhrase); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}

	// 提示词润色失败时 Enhance 内部回退到原始提示词
	scenes = make([]*pipeline.Scene, 0, len(plan.Scenes))
	for _, sd := range plan.Scenes {
		scenes = append(scenes, &pipeline.Scene{
			ID:                  id.New(),
			ProjectID:           project.ID,
			Index:               sd.Index,
			DurationSec:         sd.DurationSec,
			BasePrompt:          s.enhancer.Enhance(ctx, sd.BasePrompt),
			Style:               sd.Style,
			ContinuationPrompts: sd.ContinuationPrompts,
			VisualSeed:          sd.VisualSeed,
			State:               pipeline.SceneStatePending,
		})
	}
	if err := s.sceneRepo.CreateMany(ctx, scenes); err != nil {
		return nil, fmt.Errorf("persist scenes: %w", err)
	}

	log.Info().
		Str("project_id", project.ID).
		Int("scene_count", len(scenes)).
		Int("visual_seed", plan.VisualSeed).
		Msg("场景规划完成")

	return scenes, nil
}

// generateAndStitch 并发推进所有场景，全部终态后拼接成片
func (s *pipelineService) generateAndStitch(ctx context.Context, project *pipeline.Project, scenes []*pipeline.Scene) error {
	if err := s.projectRepo.UpdateStatus(ctx, project.ID, pipeline.ProjectStatusRunning, ""); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// 场景之间相互独立，用信号量限制并发；
	// 单个场景内部的续接链是严格串行的
	maxConcurrency := s.cfg.Pipeline.MaxConcurrentScenes
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	semaphore := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, failed := 0, 0

	for _, scene := range scenes {
		wg.Add(1)
		go func(scene *pipeline.Scene) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := s.runScene(ctx, scene); err != nil {
				// 单场景失败只记录在该场景上，不影响兄弟场景
				log.Error().Err(err).
					Str("project_id", project.ID).
					Int("scene_index", scene.Index).
					Msg("场景生成失败")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(scene)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// 项目被取消，状态已由取消入口写好
		return nil
	}

	if err := s.projectRepo.UpdateSceneCounts(ctx, project.ID, succeeded, failed); err != nil {
		log.Warn().Err(err).Str("project_id", project.ID).Msg("更新场景计数失败")
	}

	log.Info().
		Str("project_id", project.ID).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("场景生成阶段结束")

	if succeeded == 0 {
		s.failProject(project.ID, "nothing to stitch: all scenes failed")
		return fmt.Errorf("nothing to stitch: all scenes failed")
	}

	return s.stitchProject(ctx, project)
}

// runScene 把单个场景推进到终态（可重入）
//
// 从持久化的任务列表判断进度：base 任务缺失则提交，未终态则继续轮询，
// 续接链交给编排器从任务列表推导下一步
func (s *pipelineService) runScene(ctx context.Context, scene *pipeline.Scene) error {
	if scene.State == pipeline.SceneStateCompleted && scene.FinalClipURL != "" {
		return nil
	}

	rec := &taskRecorder{taskRepo: s.taskRepo}

	markFailed := func(reason string) {
		if err := s.sceneRepo.UpdateState(ctx, scene.ID, pipeline.SceneStateFailed, reason); err != nil {
			log.Warn().Err(err).Str("scene_id", scene.ID).Msg("更新场景状态失败")
		}
		s.cacheProgress(ctx, scene.ProjectID, scene.Index, pipeline.SceneStateFailed, 0)
	}

	tasks, err := s.taskRepo.FindBySceneID(ctx, scene.ID)
	if err != nil {
		markFailed(fmt.Sprintf("load tasks: %v", err))
		return fmt.Errorf("load tasks: %w", err)
	}

	var base *pipeline.Task
	for _, t := range tasks {
		if t.Kind == pipeline.TaskKindBase {
			base = t
		}
	}

	if err := s.sceneRepo.UpdateState(ctx, scene.ID, pipeline.SceneStateGenerating, ""); err != nil {
		log.Warn().Err(err).Str("scene_id", scene.ID).Msg("更新场景状态失败")
	}
	s.cacheProgress(ctx, scene.ProjectID, scene.Index, pipeline.SceneStateGenerating, 0)

	if base == nil {
		firstFrameURL := s.ensureFirstFrame(ctx, scene)

		providerTaskID, err := s.provider.SubmitBase(ctx, &cliptools.SubmitBaseRequest{
			Prompt:        scene.BasePrompt,
			FirstFrameURL: firstFrameURL,
			Seed:          scene.VisualSeed,
			DurationSec:   s.baseCallDuration(scene.DurationSec),
		})
		if err != nil {
			perr := &cliptools.ProviderError{Op: "submit base", Err: err}
			markFailed(perr.Error())
			return perr
		}

		base = &pipeline.Task{
			ID:             id.New(),
			ProjectID:      scene.ProjectID,
			SceneID:        scene.ID,
			SceneIndex:     scene.Index,
			ProviderTaskID: providerTaskID,
			Kind:           pipeline.TaskKindBase,
			Seed:           scene.VisualSeed,
			Prompt:         scene.BasePrompt,
			State:          pipeline.TaskStateQueued,
			SubmittedAt:    time.Now(),
		}
		if err := rec.CreateTask(ctx, base); err != nil {
			markFailed(fmt.Sprintf("record base task: %v", err))
			return fmt.Errorf("record base task: %w", err)
		}
		tasks = append(tasks, base)
	}

	switch base.State {
	case pipeline.TaskStateSucceeded:
		// 恢复路径：base 已完成
	case pipeline.TaskStateFailed:
		markFailed(fmt.Sprintf("base task failed: %s", base.ErrorMessage))
		return fmt.Errorf("base task failed: %s", base.ErrorMessage)
	default:
		if err := s.poller.PollUntilTerminal(ctx, base, rec.UpdateTask); err != nil {
			markFailed(err.Error())
			return fmt.Errorf("poll base: %w", err)
		}
	}

	if s.chain.ExtensionsNeeded(scene.DurationSec) > 0 {
		if err := s.sceneRepo.UpdateState(ctx, scene.ID, pipeline.SceneStateExtending, ""); err != nil {
			log.Warn().Err(err).Str("scene_id", scene.ID).Msg("更新场景状态失败")
		}
		s.cacheProgress(ctx, scene.ProjectID, scene.Index, pipeline.SceneStateExtending, 0.5)

		tasks, err = s.chain.EnsureDuration(ctx, scene, tasks, rec)
		if err != nil {
			markFailed(err.Error())
			return fmt.Errorf("extension chain: %w", err)
		}
	}

	finalURL, err := cliptools.FinalClipURL(tasks)
	if err != nil {
		markFailed(err.Error())
		return fmt.Errorf("final clip url: %w", err)
	}

	if err := s.sceneRepo.UpdateFinalClipURL(ctx, scene.ID, finalURL); err != nil {
		markFailed(fmt.Sprintf("persist final clip url: %v", err))
		return fmt.Errorf("persist final clip url: %w", err)
	}
	if err := s.sceneRepo.UpdateState(ctx, scene.ID, pipeline.SceneStateCompleted, ""); err != nil {
		log.Warn().Err(err).Str("scene_id", scene.ID).Msg("更新场景状态失败")
	}
	s.cacheProgress(ctx, scene.ProjectID, scene.Index, pipeline.SceneStateCompleted, 1.0)

	log.Info().
		Str("scene_id", scene.ID).
		Int("scene_index", scene.Index).
		Int("chain_length", len(tasks)).
		Msg("场景生成完成")

	return nil
}

// baseCallDuration base 任务的请求时长：不超过单次生成上限
func (s *pipelineService) baseCallDuration(sceneDurationSec int) int {
	if sceneDurationSec > s.cfg.Pipeline.BaseUnitSeconds {
		return s.cfg.Pipeline.BaseUnitSeconds
	}
	return sceneDurationSec
}

// ensureFirstFrame 生成场景首帧图片，返回 data URL
// 图片提供者未配置或生成失败时返回空串，降级为纯文生视频
func (s *pipelineService) ensureFirstFrame(ctx context.Context, scene *pipeline.Scene) string {
	if scene.FirstFrameURL != "" {
		return scene.FirstFrameURL
	}
	if s.imageProvider == nil {
		return ""
	}

	imageData, err := s.imageProvider.GenerateImage(ctx, scene.BasePrompt, s.cfg.Pipeline.FirstFrameSize)
	if err != nil {
		log.Warn().Err(err).
			Str("scene_id", scene.ID).
			Msg("首帧图片生成失败，降级为纯文生视频")
		return ""
	}

	dataURL := ark.ConvertImageToDataURL(imageData, "image/jpeg")
	if err := s.sceneRepo.UpdateFirstFrameURL(ctx, scene.ID, dataURL); err != nil {
		log.Warn().Err(err).Str("scene_id", scene.ID).Msg("保存首帧图片失败")
	}
	scene.FirstFrameURL = dataURL
	return dataURL
}

// stitchProject 收集成功场景的最终片段并拼接上传
func (s *pipelineService) stitchProject(ctx context.Context, project *pipeline.Project) error {
	if err := s.projectRepo.UpdateStatus(ctx, project.ID, pipeline.ProjectStatusStitching, ""); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// 只取成功的场景，按场景序号排列
	completed, err := s.sceneRepo.FindByProjectIDAndState(ctx, project.ID, pipeline.SceneStateCompleted)
	if err != nil {
		s.failProject(project.ID, fmt.Sprintf("load completed scenes: %v", err))
		return fmt.Errorf("load completed scenes: %w", err)
	}

	clipURLs := make([]string, 0, len(completed))
	for _, scene := range completed {
		if scene.FinalClipURL != "" {
			clipURLs = append(clipURLs, scene.FinalClipURL)
		}
	}
	if len(clipURLs) == 0 {
		s.failProject(project.ID, "nothing to stitch: no final clips")
		return fmt.Errorf("nothing to stitch: no final clips")
	}

	artifact, err := s.stitcher.Stitch(ctx, clipURLs)
	if err != nil {
		s.failProject(project.ID, fmt.Sprintf("stitch: %v", err))
		return fmt.Errorf("stitch: %w", err)
	}

	storageKey := fmt.Sprintf("artifacts/%s/final.mp4", project.ID)
	if _, err := s.store.Upload(ctx, storageKey, bytes.NewReader(artifact.Data), "video/mp4"); err != nil {
		s.failProject(project.ID, fmt.Sprintf("upload artifact: %v", err))
		return fmt.Errorf("upload artifact: %w", err)
	}

	row := &pipeline.Artifact{
		ID:            id.New(),
		ProjectID:     project.ID,
		StorageKey:    storageKey,
		SizeBytes:     artifact.SizeBytes,
		DurationSec:   artifact.DurationSec,
		ClipCount:     artifact.ClipCount,
		HasAudio:      artifact.HasAudio,
		Transition:    pipeline.TransitionKind(s.cfg.Pipeline.Transition),
		TransitionSec: s.cfg.Pipeline.TransitionDuration,
	}
	if err := s.artifactRepo.Create(ctx, row); err != nil {
		s.failProject(project.ID, fmt.Sprintf("persist artifact: %v", err))
		return fmt.Errorf("persist artifact: %w", err)
	}
	if err := s.projectRepo.UpdateArtifactID(ctx, project.ID, row.ID); err != nil {
		log.Warn().Err(err).Str("project_id", project.ID).Msg("关联成片失败")
	}

	if err := s.projectRepo.UpdateStatus(ctx, project.ID, pipeline.ProjectStatusCompleted, ""); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	log.Info().
		Str("project_id", project.ID).
		Str("artifact_id", row.ID).
		Int("clips", artifact.ClipCount).
		Float64("duration_sec", artifact.DurationSec).
		Int64("size_bytes", artifact.SizeBytes).
		Msg("成片生成完成")

	return nil
}

// failProject 把项目标记为失败（用后台上下文，避免取消传播吞掉落库）
func (s *pipelineService) failProject(projectID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.projectRepo.UpdateStatus(ctx, projectID, pipeline.ProjectStatusFailed, reason); err != nil {
		log.Error().Err(err).Str("project_id", projectID).Msg("标记项目失败状态时出错")
	}
}
