package pipeline

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListProjects 分页获取项目列表
// @Summary      项目列表
// @Description  分页获取项目列表（按创建时间倒序）
// @Tags         项目管理
// @Produce      json
// @Param        page       query     int  false  "页码（默认1）"
// @Param        page_size  query     int  false  "每页数量（默认20，最大100）"
// @Success      200        {object}  map[string]interface{}  "成功响应"
// @Failure      500        {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/projects [get]
func (h *Handler) ListProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	projects, total, err := h.pipelineService.ListProjects(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"total":    total,
			"projects": toProjectInfoList(projects),
		},
	})
}
