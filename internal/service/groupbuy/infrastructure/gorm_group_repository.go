// internal/service/groupbuy/infrastructure/gorm_group_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pinhub/internal/service/groupbuy/domain"
)

// GormGroupRepository 是 domain.GroupRepository 的 GORM 实现。
// 依赖当前状态的写入都用条件 UPDATE 实现乐观并发：
// RowsAffected == 0 统一返回 domain.ErrStateConflict，由调用方决定是否忽略。
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository 创建一个新的 GORM 仓储实例
func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

// CreateWithOrder 在一个事务里写入拼团和它的发布费订单。
func (r *GormGroupRepository) CreateWithOrder(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(FromDomainGroup(group)).Error; err != nil {
			return pkgerrors.Wrap(err, "create group")
		}
		if err := tx.Create(FromDomainOrder(order)).Error; err != nil {
			return pkgerrors.Wrap(err, "create post order")
		}
		return nil
	})
}

// FindByID 根据 ID 查找拼团。
func (r *GormGroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	var model GroupModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return ToDomainGroup(&model), nil
}

// ListActive 返回全部 active 拼团，按创建时间倒序。
func (r *GormGroupRepository) ListActive(ctx context.Context) ([]*domain.Group, error) {
	var models []GroupModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.GroupActive).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainGroups(models), nil
}

// ListExpiredActive 返回已过期但仍是 active 的拼团，Sweep 的输入。
func (r *GormGroupRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Group, error) {
	var models []GroupModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", domain.GroupActive, now).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainGroups(models), nil
}

// ListByLeader 返回某用户发布的拼团，按创建时间倒序。
func (r *GormGroupRepository) ListByLeader(ctx context.Context, userID string) ([]*domain.Group, error) {
	var models []GroupModel
	err := r.db.WithContext(ctx).
		Where("leader_user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainGroups(models), nil
}

// CountByStatus 统计各状态下的拼团数量。
func (r *GormGroupRepository) CountByStatus(ctx context.Context) (map[domain.GroupState]int64, error) {
	var rows []struct {
		Status domain.GroupState
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&GroupModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.GroupState]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ActivateWithPayment 原子地标记订单已支付并激活拼团。
// 两条都是条件更新：任何一条没命中就整体回滚，
// 防止重放的通知造成二次激活或半应用状态。
func (r *GormGroupRepository) ActivateWithPayment(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PostOrderModel{}).
			Where("order_id = ? AND status = ?", order.OrderID, domain.OrderPending).
			Updates(map[string]interface{}{
				"status":   order.Status,
				"trade_no": order.TradeNo,
				"paid_at":  order.PaidAt,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "mark order paid")
		}
		if res.RowsAffected == 0 {
			return domain.ErrStateConflict
		}

		res = tx.Model(&GroupModel{}).
			Where("id = ? AND status = ?", group.ID, domain.GroupPendingPayment).
			Updates(map[string]interface{}{
				"status":           group.Status,
				"activated_at":     group.ActivatedAt,
				"expires_at":       group.ExpiresAt,
				"payment_trade_no": group.PaymentTradeNo,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "activate group")
		}
		if res.RowsAffected == 0 {
			return domain.ErrStateConflict
		}
		return nil
	})
}

// CompleteWithRewards 原子地完成拼团并为前三名写入奖励。
// 奖励用 INSERT ... ON CONFLICT DO NOTHING，保证重复调用不产生重复奖励。
func (r *GormGroupRepository) CompleteWithRewards(ctx context.Context, group *domain.Group, rewards []*domain.Reward) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&GroupModel{}).
			Where("id = ? AND status = ?", group.ID, domain.GroupActive).
			Updates(map[string]interface{}{
				"status":       group.Status,
				"completed_at": group.CompletedAt,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "complete group")
		}
		if res.RowsAffected == 0 {
			return domain.ErrStateConflict
		}

		for _, reward := range rewards {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(FromDomainReward(reward)).Error
			if err != nil {
				return pkgerrors.Wrap(err, "create reward")
			}
		}
		return nil
	})
}

// Expire 条件地把 active 拼团置为 expired。
func (r *GormGroupRepository) Expire(ctx context.Context, group *domain.Group) error {
	res := r.db.WithContext(ctx).Model(&GroupModel{}).
		Where("id = ? AND status = ?", group.ID, domain.GroupActive).
		Updates(map[string]interface{}{
			"status":     group.Status,
			"expired_at": group.ExpiredAt,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "expire group")
	}
	if res.RowsAffected == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

// MarkRefunded 原子地把订单和拼团都置为 refunded。
// 订单侧清空 refund_error，之前失败留下的现场只在成功后清理。
func (r *GormGroupRepository) MarkRefunded(ctx context.Context, group *domain.Group, order *domain.PostOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PostOrderModel{}).
			Where("order_id = ? AND status = ?", order.OrderID, domain.OrderPaid).
			Updates(map[string]interface{}{
				"status":       order.Status,
				"refunded_at":  order.RefundedAt,
				"refund_error": "",
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "mark order refunded")
		}
		if res.RowsAffected == 0 {
			return domain.ErrStateConflict
		}

		res = tx.Model(&GroupModel{}).
			Where("id = ? AND status = ?", group.ID, domain.GroupExpired).
			Updates(map[string]interface{}{"status": group.Status})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "mark group refunded")
		}
		if res.RowsAffected == 0 {
			return domain.ErrStateConflict
		}
		return nil
	})
}

func toDomainGroups(models []GroupModel) []*domain.Group {
	groups := make([]*domain.Group, 0, len(models))
	for i := range models {
		groups = append(groups, ToDomainGroup(&models[i]))
	}
	return groups
}
