package repository

import (
	"testing"
	"time"

	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.CartSnapshot{}, &models.QRPaymentSession{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func TestCartRepositorySaveAndGet(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))

	got, err := repo.GetByRegister("register-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got != nil {
		t.Fatal("未写入前应返回 nil")
	}

	v1, err := repo.Save("register-1", []byte(`{"items":[]}`))
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("首次写入版本应为 1, got %d", v1)
	}

	v2, err := repo.Save("register-1", []byte(`{"items":[{"product_id":1}]}`))
	if err != nil {
		t.Fatalf("二次写入失败: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("版本应递增为 2, got %d", v2)
	}

	got, err = repo.GetByRegister("register-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got == nil || got.Version != 2 {
		t.Fatalf("快照版本错误: %+v", got)
	}
}

func TestCartRepositoryClear(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))

	if _, err := repo.Save("register-1", []byte(`{"items":[{"product_id":1}]}`)); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	version, err := repo.Clear("register-1")
	if err != nil {
		t.Fatalf("清空失败: %v", err)
	}
	if version != 2 {
		t.Fatalf("清空也应递增版本, got %d", version)
	}
	got, err := repo.GetByRegister("register-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("清空后载荷应为空, got %s", got.Payload)
	}
}

func newTestSession(transactionID, checkoutID, status string) *models.QRPaymentSession {
	return &models.QRPaymentSession{
		TransactionID: transactionID,
		CheckoutID:    checkoutID,
		RegisterKey:   "register-1",
		Amount:        models.NewMoneyFromInt(15000),
		Method:        constants.PaymentMethodQRIS,
		QRData:        "00020101021226...",
		Status:        status,
		ExpiresAt:     time.Now().Add(5 * time.Minute),
	}
}

func TestQRSessionStatusGuard(t *testing.T) {
	repo := NewQRSessionRepository(setupTestDB(t))

	if err := repo.Create(newTestSession("TXN-1", "CHK-1", constants.QRSessionStatusPending)); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	changed, err := repo.UpdateStatus("TXN-1", constants.QRSessionStatusPending, constants.QRSessionStatusProcessing, "")
	if err != nil {
		t.Fatalf("状态更新失败: %v", err)
	}
	if !changed {
		t.Fatal("pending→processing 应成功")
	}

	// 前置状态不匹配时落空
	changed, err = repo.UpdateStatus("TXN-1", constants.QRSessionStatusPending, constants.QRSessionStatusCompleted, "")
	if err != nil {
		t.Fatalf("状态更新失败: %v", err)
	}
	if changed {
		t.Fatal("前置状态已不是 pending，更新应落空")
	}
}

func TestQRSessionSupersedePending(t *testing.T) {
	repo := NewQRSessionRepository(setupTestDB(t))

	if err := repo.Create(newTestSession("TXN-1", "CHK-1", constants.QRSessionStatusPending)); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if err := repo.Create(newTestSession("TXN-2", "CHK-1", constants.QRSessionStatusPending)); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	count, err := repo.SupersedePending("CHK-1", "TXN-2")
	if err != nil {
		t.Fatalf("作废失败: %v", err)
	}
	if count != 1 {
		t.Fatalf("应作废 1 条, got %d", count)
	}

	old, err := repo.GetByTransactionID("TXN-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if old.Status != constants.QRSessionStatusFailed {
		t.Fatalf("旧会话应转为 failed, got %s", old.Status)
	}
	kept, err := repo.GetByTransactionID("TXN-2")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if kept.Status != constants.QRSessionStatusPending {
		t.Fatalf("新会话不应被作废, got %s", kept.Status)
	}
}

func TestQRSessionConsumeCompletionOnce(t *testing.T) {
	repo := NewQRSessionRepository(setupTestDB(t))

	if err := repo.Create(newTestSession("TXN-1", "CHK-1", constants.QRSessionStatusCompleted)); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	first, err := repo.ConsumeCompletion("TXN-1")
	if err != nil {
		t.Fatalf("消费失败: %v", err)
	}
	if !first {
		t.Fatal("首次消费应成功")
	}
	second, err := repo.ConsumeCompletion("TXN-1")
	if err != nil {
		t.Fatalf("消费失败: %v", err)
	}
	if second {
		t.Fatal("重复消费应落空")
	}
}

func TestQRSessionReleaseCompletionReopens(t *testing.T) {
	repo := NewQRSessionRepository(setupTestDB(t))

	if err := repo.Create(newTestSession("TXN-1", "CHK-1", constants.QRSessionStatusCompleted)); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	// 未消费时释放落空
	released, err := repo.ReleaseCompletion("TXN-1")
	if err != nil {
		t.Fatalf("释放失败: %v", err)
	}
	if released {
		t.Fatal("未消费的会话释放应落空")
	}

	if fired, err := repo.ConsumeCompletion("TXN-1"); err != nil || !fired {
		t.Fatalf("首次消费应成功: fired=%v err=%v", fired, err)
	}
	released, err = repo.ReleaseCompletion("TXN-1")
	if err != nil {
		t.Fatalf("释放失败: %v", err)
	}
	if !released {
		t.Fatal("已消费的会话应可释放")
	}
	// 释放后可再次消费
	if fired, err := repo.ConsumeCompletion("TXN-1"); err != nil || !fired {
		t.Fatalf("释放后应可重新消费: fired=%v err=%v", fired, err)
	}
}
