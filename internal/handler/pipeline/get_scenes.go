package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetScenes 获取项目的场景及任务链
// @Summary      场景列表
// @Description  获取项目的场景及每个场景的任务链（base 和续接任务，用于审计）
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      500         {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/projects/{project_id}/scenes [get]
func (h *Handler) GetScenes(c *gin.Context) {
	projectID := c.Param("project_id")

	scenes, chains, err := h.pipelineService.GetScenes(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	infos := make([]SceneInfo, len(scenes))
	for i, s := range scenes {
		infos[i] = toSceneInfo(s, chains[s.ID])
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"scenes": infos,
		},
	})
}
