package middleware

import (
	"github.com/gin-gonic/gin"

	"pomelo/internal/pkg/id"
)

// RequestIDHeader 请求ID的Header名称
const RequestIDHeader = "X-Request-ID"

// RequestID 请求ID中间件
// 透传客户端携带的请求ID，没有时生成一个
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}
