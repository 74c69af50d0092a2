package terminal

import (
	"context"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// getOperator 从已认证会话解析收银员身份
// 提交销售时的操作员字段只认这里，绝不取自请求体。
func getOperator(c *gin.Context) (string, bool) {
	value, ok := c.Get("operator")
	if !ok {
		response.Unauthorized(c, "收银员未登录")
		return "", false
	}
	operator, ok := value.(string)
	if !ok || operator == "" {
		response.Unauthorized(c, "收银员身份无效")
		return "", false
	}
	return operator, true
}

// requestContext 构造携带收银员令牌的后端调用上下文
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if value, ok := c.Get("operator_token"); ok {
		if token, ok := value.(string); ok && token != "" {
			ctx = backend.WithToken(ctx, token)
		}
	}
	return ctx
}
