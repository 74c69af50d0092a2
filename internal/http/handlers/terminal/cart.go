package terminal

import (
	"errors"
	"strconv"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/http/response"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddItemRequest 加车请求
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateQuantityRequest 调量请求
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart 获取当前购物车
func (h *Handler) GetCart(c *gin.Context) {
	cart := h.CartService.Snapshot()
	response.Success(c, gin.H{
		"cart":    cart,
		"version": h.CartService.Version(),
	})
}

// AddCartItem 加入商品
// 单价在加车时从目录快照，数量缺省为 1。
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx := requestContext(c)
	product, err := h.BackendClient.GetProduct(ctx, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		case errors.Is(err, models.ErrProductInvalid):
			respondError(c, response.CodeUpstream, "目录返回的商品数据非法", err)
		default:
			respondError(c, response.CodeUpstream, err.Error(), err)
		}
		return
	}

	cart, err := h.CartService.AddItem(ctx, product, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuantityInvalid):
			respondError(c, response.CodeBadRequest, "数量必须为正数", nil)
		default:
			respondError(c, response.CodeInternal, "购物车更新失败", err)
		}
		return
	}
	response.Success(c, gin.H{"cart": cart})
}

// UpdateCartItem 调整商品数量（≤0 等价删除）
func (h *Handler) UpdateCartItem(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	cart, err := h.CartService.UpdateQuantity(requestContext(c), productID, req.Quantity)
	if err != nil {
		respondError(c, response.CodeInternal, "购物车更新失败", err)
		return
	}
	response.Success(c, gin.H{"cart": cart})
}

// DeleteCartItem 删除商品行
func (h *Handler) DeleteCartItem(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	cart, err := h.CartService.RemoveItem(requestContext(c), productID)
	if err != nil {
		respondError(c, response.CodeInternal, "购物车更新失败", err)
		return
	}
	response.Success(c, gin.H{"cart": cart})
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	cart, err := h.CartService.Clear(requestContext(c))
	if err != nil {
		respondError(c, response.CodeInternal, "购物车清空失败", err)
		return
	}
	response.Success(c, gin.H{"cart": cart})
}

func parseProductID(c *gin.Context) (uint, bool) {
	raw := c.Param("product_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "商品ID非法", nil)
		return 0, false
	}
	return uint(id), true
}
