package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResumeProject 恢复中断的项目
// @Summary      恢复项目
// @Description  从持久化状态恢复中断的项目：已完成的场景跳过，未终态的任务继续轮询
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      400         {object}  ErrorResponse  "项目无法恢复"
// @Router       /api/v1/projects/{project_id}/resume [post]
func (h *Handler) ResumeProject(c *gin.Context) {
	projectID := c.Param("project_id")

	if err := h.pipelineService.ResumeProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40004,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "项目恢复运行",
	})
}
