package pipeline

import (
	pipelinesvc "pomelo/internal/service/pipeline"
)

// Handler 流水线接口处理器
type Handler struct {
	pipelineService pipelinesvc.PipelineService
}

// NewHandler 创建流水线接口处理器
func NewHandler(pipelineService pipelinesvc.PipelineService) *Handler {
	return &Handler{
		pipelineService: pipelineService,
	}
}
