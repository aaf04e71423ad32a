package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetArtifactResponseData 成片响应数据
type GetArtifactResponseData struct {
	URL string `json:"url"` // 预签名下载URL
}

// GetArtifact 获取成片下载URL
// @Summary      获取成片
// @Description  获取项目成片的预签名下载URL（1小时有效）
// @Tags         项目管理
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}  "成功响应"
// @Failure      404         {object}  ErrorResponse  "成片不存在"
// @Router       /api/v1/projects/{project_id}/artifact [get]
func (h *Handler) GetArtifact(c *gin.Context) {
	projectID := c.Param("project_id")

	url, err := h.pipelineService.GetArtifactURL(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40402,
			Message: "Artifact not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": GetArtifactResponseData{
			URL: url,
		},
	})
}
