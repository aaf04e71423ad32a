package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomelo/internal/model/pipeline"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Topic            string `json:"topic" binding:"required"`                // 视频主题描述（必填）
	TotalDurationSec int    `json:"total_duration_sec" binding:"required"`   // 总时长（秒，必填）
	Style            string `json:"style" binding:"required"`                // 视觉风格：cinematic/anime/realistic/documentary
}

// CreateProjectResponseData 创建项目响应数据
type CreateProjectResponseData struct {
	ProjectID string `json:"project_id"` // 创建的项目ID
}

// CreateProject 创建项目并启动生成流水线
// @Summary      创建视频项目
// @Description  根据主题、总时长和风格创建项目，异步启动生成流水线
// @Tags         项目管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateProjectRequest  true  "创建项目请求"
// @Success      201      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	style := pipeline.Style(req.Style)
	if !style.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "Unknown style",
			Detail:  req.Style,
		})
		return
	}

	ctx := c.Request.Context()

	project, err := h.pipelineService.CreateProject(ctx, req.Topic, req.TotalDurationSec, style)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "项目创建成功",
		"data": CreateProjectResponseData{
			ProjectID: project.ID,
		},
	})
}
