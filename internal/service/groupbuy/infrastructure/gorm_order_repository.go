// internal/service/groupbuy/infrastructure/gorm_order_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"pinhub/internal/service/groupbuy/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByOrderID 根据商户订单号查找订单。
func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.PostOrder, error) {
	var model PostOrderModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// FindByGroupID 查找拼团对应的发布费订单。
func (r *GormOrderRepository) FindByGroupID(ctx context.Context, groupID string) (*domain.PostOrder, error) {
	var model PostOrderModel
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// SetRefundError 记录退款失败原因，订单状态保持不变，等下一轮重试。
func (r *GormOrderRepository) SetRefundError(ctx context.Context, orderID string, reason string) error {
	err := r.db.WithContext(ctx).Model(&PostOrderModel{}).
		Where("order_id = ?", orderID).
		Update("refund_error", reason).Error
	if err != nil {
		return pkgerrors.Wrap(err, "set refund error")
	}
	return nil
}
