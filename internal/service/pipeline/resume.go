package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pomelo/internal/model/pipeline"
)

// ResumeProject 从持久化状态恢复中断的项目
//
// 整条流水线是可重入的，恢复和首次运行走同一个 run：
// 规划结果、任务链、场景状态都从库里读出来再推导下一步，
// 已完成的场景直接跳过，未终态的任务继续轮询
func (s *pipelineService) ResumeProject(ctx context.Context, projectID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("find project: %w", err)
	}

	switch project.Status {
	case pipeline.ProjectStatusCompleted:
		return fmt.Errorf("project %s already completed", projectID)
	case pipeline.ProjectStatusCancelled:
		return fmt.Errorf("project %s was cancelled", projectID)
	}

	s.mu.Lock()
	_, running := s.cancels[projectID]
	s.mu.Unlock()
	if running {
		return fmt.Errorf("project %s is already running", projectID)
	}

	log.Info().
		Str("project_id", projectID).
		Str("status", project.Status.String()).
		Msg("恢复项目运行")

	s.startRun(projectID)
	return nil
}
