package repository

import (
	"errors"
	"time"

	"github.com/pos-next/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车快照数据访问接口
type CartRepository interface {
	GetByRegister(registerKey string) (*models.CartSnapshot, error)
	Save(registerKey string, payload []byte) (uint64, error)
	Clear(registerKey string) (uint64, error)
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车快照仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// GetByRegister 读取收银台快照，不存在返回 nil
func (r *GormCartRepository) GetByRegister(registerKey string) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	err := r.db.Where("register_key = ?", registerKey).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Save 写入整车载荷并递增版本，返回新版本号
func (r *GormCartRepository) Save(registerKey string, payload []byte) (uint64, error) {
	return r.write(registerKey, payload)
}

// Clear 清空购物车（写入空载荷），返回新版本号
func (r *GormCartRepository) Clear(registerKey string) (uint64, error) {
	return r.write(registerKey, nil)
}

func (r *GormCartRepository) write(registerKey string, payload []byte) (uint64, error) {
	var version uint64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CartSnapshot
		err := tx.Where("register_key = ?", registerKey).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			snapshot := models.CartSnapshot{
				RegisterKey: registerKey,
				Payload:     payload,
				Version:     1,
				UpdatedAt:   time.Now(),
			}
			if err := tx.Create(&snapshot).Error; err != nil {
				return err
			}
			version = 1
			return nil
		}
		if err != nil {
			return err
		}
		version = existing.Version + 1
		return tx.Model(&existing).Updates(map[string]interface{}{
			"payload":    payload,
			"version":    version,
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}
