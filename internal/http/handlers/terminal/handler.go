package terminal

import "github.com/pos-next/internal/provider"

// Handler 收银终端接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建终端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
