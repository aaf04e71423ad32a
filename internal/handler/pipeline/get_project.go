package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProject 获取项目状态
// @Summary      获取项目
// @Description  获取项目状态，含成功/失败场景计数
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      404         {object}  ErrorResponse  "项目不存在"
// @Router       /api/v1/projects/{project_id} [get]
func (h *Handler) GetProject(c *gin.Context) {
	projectID := c.Param("project_id")

	project, err := h.pipelineService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "Project not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toProjectInfo(project),
	})
}
