package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/cache"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
)

// StockValidationError 库存校验失败，携带逐项缺口
type StockValidationError struct {
	Result *StockValidationResult
}

// Error 实现 error 接口
func (e *StockValidationError) Error() string {
	return fmt.Sprintf("stock shortfall on %d item(s)", len(e.Result.Errors))
}

// Unwrap 支持 errors.Is(err, ErrStockShortfall)
func (e *StockValidationError) Unwrap() error {
	return ErrStockShortfall
}

// AllocationValidationError 支付核对失败，携带校验结论
type AllocationValidationError struct {
	Verdict AllocationVerdict
}

// Error 实现 error 接口
func (e *AllocationValidationError) Error() string {
	if e.Verdict.Message != "" {
		return e.Verdict.Message
	}
	return "payment allocation invalid"
}

// Unwrap 返回结论中的哨兵错误
func (e *AllocationValidationError) Unwrap() error {
	return e.Verdict.Err
}

// SaleBackend 销售提交后端接口
type SaleBackend interface {
	CreateSale(ctx context.Context, input backend.CreateSaleInput) (*backend.CreateSaleResult, error)
}

// CommitInput 结算提交入参
// Operator 由调用方从已认证会话解析，绝不取自购物车或请求体。
type CommitInput struct {
	PlanType        string               // single / multi / qr
	PaymentMethod   string               // single 模式的支付方式
	Reference       string               // single 模式非现金方式的凭证号
	Allocation      models.AllocationSet // multi 模式的分配集合
	QRTransactionID string               // qr 模式的交易号
	Notes           string
	Operator        string
}

// CommitResult 结算提交结果
type CommitResult struct {
	SaleID        uint         `json:"sale_id"`
	Total         models.Money `json:"total"`
	PaymentMethod string       `json:"payment_method"`
	Status        string       `json:"status"`
	Change        models.Money `json:"change"`
}

// SaleService 销售提交编排
// 依次过库存、支付、扫码三道闸门后提交后端；
// 只有后端确认成功才清空购物车，任何失败都保持车况原样。
type SaleService struct {
	carts     *CartService
	stock     *StockService
	allocator *PaymentAllocationService
	qr        *QRPaymentService
	gateway   SaleBackend
	lockTTL   time.Duration
}

// NewSaleService 创建销售提交服务
func NewSaleService(carts *CartService, stock *StockService, allocator *PaymentAllocationService, qr *QRPaymentService, gateway SaleBackend) *SaleService {
	return &SaleService{
		carts:     carts,
		stock:     stock,
		allocator: allocator,
		qr:        qr,
		gateway:   gateway,
		lockTTL:   30 * time.Second,
	}
}

// Commit 提交结算
func (s *SaleService) Commit(ctx context.Context, input CommitInput) (*CommitResult, error) {
	if strings.TrimSpace(input.Operator) == "" {
		return nil, ErrOperatorRequired
	}

	cart := s.carts.Snapshot()
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	// 同一收银台的并发提交互斥，防止双击双提
	lockKey := fmt.Sprintf("%s:%s", constants.CacheKeyCommitLock, s.carts.RegisterKey())
	acquired, err := cache.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrCommitInProgress
	}
	defer func() {
		if err := cache.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.Warnw("commit_lock_release_failed", "key", lockKey, "error", err)
		}
	}()

	stockResult, err := s.stock.Validate(ctx, cart)
	if err != nil {
		return nil, err
	}
	if !stockResult.Valid {
		return nil, &StockValidationError{Result: stockResult}
	}

	saleInput := backend.CreateSaleInput{
		Notes: input.Notes,
		Items: make([]backend.SaleItem, 0, len(cart.Items)),
	}
	for _, line := range cart.Items {
		saleInput.Items = append(saleInput.Items, backend.SaleItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	change := models.NewMoneyFromInt(0)
	qrTransactionID := ""
	switch input.PlanType {
	case constants.PaymentPlanMulti:
		verdict, err := s.allocator.ValidateRemote(ctx, input.Allocation, cart.Total)
		if err != nil {
			return nil, err
		}
		if !verdict.Valid {
			return nil, &AllocationValidationError{Verdict: verdict}
		}
		change = verdict.Change
		saleInput.PaymentMethod = constants.PaymentPlanMulti
		for _, entry := range input.Allocation.Entries {
			saleInput.MultiPayments = append(saleInput.MultiPayments, backend.PaymentLeg{
				Method:    entry.Method,
				Amount:    entry.Amount,
				Reference: entry.Reference,
			})
		}
	case constants.PaymentPlanQR:
		session, err := s.qr.RequireCompleted(ctx, input.QRTransactionID)
		if err != nil {
			return nil, err
		}
		// 会话金额必须与当前车总额一致；
		// 扫码后车况变动的，只能重新发起会话。
		if !session.Amount.Decimal.Equal(cart.Total.Decimal) {
			return nil, fmt.Errorf("%w: session %s, cart %s",
				ErrQRAmountMismatch, session.Amount, cart.Total)
		}
		fired, err := s.qr.ConsumeCompletion(ctx, session.TransactionID)
		if err != nil {
			return nil, err
		}
		if !fired {
			// 完成事件已被消费过，拒绝重复提交
			return nil, ErrQRSessionTerminal
		}
		qrTransactionID = session.TransactionID
		saleInput.PaymentMethod = session.Method
	default:
		// 单一方式按一条分配条目核对
		entry, err := models.NewAllocationEntry(input.PaymentMethod, cart.Total, input.Reference)
		if err != nil {
			return nil, err
		}
		set := models.AllocationSet{Entries: []models.AllocationEntry{entry}}
		verdict := s.allocator.Validate(set, cart.Total)
		if !verdict.Valid {
			return nil, &AllocationValidationError{Verdict: verdict}
		}
		saleInput.PaymentMethod = input.PaymentMethod
	}

	result, err := s.gateway.CreateSale(ctx, saleInput)
	if err != nil {
		// 顾客已付款，释放完成事件以便用户重试提交
		if qrTransactionID != "" {
			if relErr := s.qr.ReleaseCompletion(context.WithoutCancel(ctx), qrTransactionID); relErr != nil {
				logger.Errorw("qr_completion_release_failed",
					"transaction_id", qrTransactionID,
					"error", relErr,
				)
			}
		}
		// 后端拒绝时购物车保持原样，错误文案原封不动上抛
		logger.Warnw("sale_submit_rejected",
			"register_key", s.carts.RegisterKey(),
			"operator", input.Operator,
			"error", err,
		)
		return nil, err
	}

	if _, err := s.carts.Clear(ctx); err != nil {
		// 销售已落账，清车失败只记日志，不回滚成功结果
		logger.Errorw("cart_clear_after_commit_failed",
			"register_key", s.carts.RegisterKey(),
			"sale_id", result.ID,
			"error", err,
		)
	}

	logger.Infow("sale_committed",
		"sale_id", result.ID,
		"register_key", s.carts.RegisterKey(),
		"operator", input.Operator,
		"total", result.Total.String(),
		"payment_method", result.PaymentMethod,
	)
	return &CommitResult{
		SaleID:        result.ID,
		Total:         result.Total,
		PaymentMethod: result.PaymentMethod,
		Status:        result.Status,
		Change:        change,
	}, nil
}
