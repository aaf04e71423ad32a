package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CancelProject 取消项目
// @Summary      取消项目
// @Description  停止新的提交和轮询，放弃在途轮询；已被提供者接受的任务不会也无法撤销
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      400         {object}  ErrorResponse  "项目已终态"
// @Router       /api/v1/projects/{project_id}/cancel [post]
func (h *Handler) CancelProject(c *gin.Context) {
	projectID := c.Param("project_id")

	if err := h.pipelineService.CancelProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40003,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "项目已取消",
	})
}
