package service

import "errors"

var (
	// ErrCartEmpty 购物车为空
	ErrCartEmpty = errors.New("cart is empty")
	// ErrQuantityInvalid 数量非法
	ErrQuantityInvalid = errors.New("quantity must be positive")
	// ErrProductNotInCart 商品不在购物车中
	ErrProductNotInCart = errors.New("product not in cart")

	// ErrAllocationEmpty 支付分配集合为空
	ErrAllocationEmpty = errors.New("allocation set is empty")
	// ErrAllocationShortfall 支付合计不足
	ErrAllocationShortfall = errors.New("allocation total is less than order total")
	// ErrAllocationNonCashOverage 非现金条目超付（找零只能来自现金）
	ErrAllocationNonCashOverage = errors.New("non-cash legs exceed the amount they can cover")
	// ErrAllocationRejectedRemote 后端复核拒绝了该分配
	ErrAllocationRejectedRemote = errors.New("allocation rejected by backend validation")

	// ErrStockShortfall 库存不足
	ErrStockShortfall = errors.New("stock shortfall")

	// ErrQRSessionNotFound 扫码会话不存在
	ErrQRSessionNotFound = errors.New("qr session not found")
	// ErrQRSessionExpired 扫码会话已过期
	ErrQRSessionExpired = errors.New("qr session expired")
	// ErrQRSessionTerminal 扫码会话已处于终态
	ErrQRSessionTerminal = errors.New("qr session already finished")
	// ErrQRSessionNotCompleted 扫码会话未完成支付
	ErrQRSessionNotCompleted = errors.New("qr session not completed")
	// ErrQRTransitionInvalid 扫码会话状态流转非法
	ErrQRTransitionInvalid = errors.New("qr session transition invalid")
	// ErrQRAmountMismatch 扫码会话金额与当前购物车总额不一致
	ErrQRAmountMismatch = errors.New("qr session amount does not match cart total")

	// ErrCommitInProgress 同一收银台已有提交在进行
	ErrCommitInProgress = errors.New("another commit is in progress")
	// ErrOperatorRequired 缺少收银员身份
	ErrOperatorRequired = errors.New("operator identity required")
)
