package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/repository"
)

type fakeQRGateway struct {
	nextTxn      int
	verifyStatus string
	verifyErr    error
	verifyCalls  int
}

func (f *fakeQRGateway) GenerateQRPayment(ctx context.Context, input backend.GenerateQRInput) (*backend.GenerateQRResult, error) {
	f.nextTxn++
	return &backend.GenerateQRResult{
		TransactionID: fmt.Sprintf("TXN-%d", f.nextTxn),
		QRData:        "00020101021226...",
		CreatedAt:     time.Now(),
	}, nil
}

func (f *fakeQRGateway) VerifyQRPayment(ctx context.Context, transactionID string) (*backend.VerifyQRResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &backend.VerifyQRResult{Status: f.verifyStatus}, nil
}

func (f *fakeQRGateway) MerchantName() string { return "Test Store" }

func newTestQRService(t *testing.T, gateway *fakeQRGateway) *QRPaymentService {
	t.Helper()
	repo := repository.NewQRSessionRepository(setupTestDB(t))
	return NewQRPaymentService(repo, gateway, nil, 300)
}

func TestQRCreateAndVerifyCompleted(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusCompleted}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if session.Status != constants.QRSessionStatusPending {
		t.Fatalf("初始状态应为 pending, got %s", session.Status)
	}

	settled, err := svc.Verify(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("核验失败: %v", err)
	}
	if settled.Status != constants.QRSessionStatusCompleted {
		t.Fatalf("核验后应为 completed, got %s", settled.Status)
	}
}

func TestQRVerifyStillPendingReverts(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusPending}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	got, err := svc.Verify(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("核验失败: %v", err)
	}
	if got.Status != constants.QRSessionStatusPending {
		t.Fatalf("后端仍在等待且未超时，应退回 pending, got %s", got.Status)
	}
}

func TestQRCountdownExpiresWithoutVerify(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusCompleted}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	// 本地时钟推过过期点
	svc.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }

	got, err := svc.Get(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Status != constants.QRSessionStatusFailed {
		t.Fatalf("倒计时归零应转为 failed, got %s", got.Status)
	}

	// 过期后的核验不得起死回生
	late, err := svc.Verify(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("核验失败: %v", err)
	}
	if late.Status != constants.QRSessionStatusFailed {
		t.Fatalf("过期会话不得转为 completed, got %s", late.Status)
	}
	if gateway.verifyCalls != 0 {
		t.Fatalf("终态会话不应再请求后端, got %d", gateway.verifyCalls)
	}
}

func TestQRNewSessionSupersedesPending(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusPending}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	first, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	second, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if first.TransactionID == second.TransactionID {
		t.Fatal("新会话必须携带新交易号")
	}

	old, err := svc.Get(ctx, first.TransactionID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if old.Status != constants.QRSessionStatusFailed {
		t.Fatalf("旧会话应被作废, got %s", old.Status)
	}
}

func TestQRVerifyErrorLeavesPending(t *testing.T) {
	gateway := &fakeQRGateway{verifyErr: errors.New("gateway down")}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if _, err := svc.Verify(ctx, session.TransactionID); err == nil {
		t.Fatal("后端失败应上抛错误")
	}
	got, err := svc.Get(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Status != constants.QRSessionStatusPending {
		t.Fatalf("核验失败应退回 pending 等待重试, got %s", got.Status)
	}
}

func TestQRConsumeCompletionOnce(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusCompleted}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if _, err := svc.Verify(ctx, session.TransactionID); err != nil {
		t.Fatalf("核验失败: %v", err)
	}

	first, err := svc.ConsumeCompletion(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("消费失败: %v", err)
	}
	second, err := svc.ConsumeCompletion(ctx, session.TransactionID)
	if err != nil {
		t.Fatalf("消费失败: %v", err)
	}
	if !first || second {
		t.Fatalf("完成事件应恰好消费一次: first=%v second=%v", first, second)
	}
}

func TestQRExpireByTask(t *testing.T) {
	gateway := &fakeQRGateway{verifyStatus: constants.QRVerifyStatusPending}
	svc := newTestQRService(t, gateway)
	ctx := context.Background()

	session, err := svc.Create(ctx, "CHK-1", "register-1", models.NewMoneyFromInt(15000))
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	// 未到期的任务静默落空
	if err := svc.ExpireByTask(ctx, session.TransactionID); err != nil {
		t.Fatalf("任务执行失败: %v", err)
	}
	got, _ := svc.repo.GetByTransactionID(session.TransactionID)
	if got.Status != constants.QRSessionStatusPending {
		t.Fatalf("未到期不应改状态, got %s", got.Status)
	}

	svc.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }
	if err := svc.ExpireByTask(ctx, session.TransactionID); err != nil {
		t.Fatalf("任务执行失败: %v", err)
	}
	got, _ = svc.repo.GetByTransactionID(session.TransactionID)
	if got.Status != constants.QRSessionStatusFailed {
		t.Fatalf("到期任务应转为 failed, got %s", got.Status)
	}
}
