package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteProject 删除项目
// @Summary      删除项目
// @Description  软删除项目，运行中的先取消；任务记录保留用于审计
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      404         {object}  ErrorResponse  "项目不存在"
// @Router       /api/v1/projects/{project_id} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")

	if err := h.pipelineService.DeleteProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40403,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "项目已删除",
	})
}
