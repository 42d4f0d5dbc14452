// internal/service/groupbuy/infrastructure/gorm_reward_repository.go
package infrastructure

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"pinhub/internal/service/groupbuy/domain"
)

// GormRewardRepository 是 domain.RewardRepository 的 GORM 实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewGormRewardRepository 创建一个新的 GORM 仓储实例
func NewGormRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// ListPending 返回全部待发放奖励，按创建时间升序。
func (r *GormRewardRepository) ListPending(ctx context.Context) ([]*domain.Reward, error) {
	var models []RewardModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.RewardPending).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainRewards(models), nil
}

// ListByGroup 返回某拼团的全部奖励。
func (r *GormRewardRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.Reward, error) {
	var models []RewardModel
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainRewards(models), nil
}

// MarkPaid 条件地把 pending 奖励置为 paid，重复标记返回 ErrStateConflict。
func (r *GormRewardRepository) MarkPaid(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&RewardModel{}).
		Where("id = ? AND status = ?", id, domain.RewardPending).
		Updates(map[string]interface{}{
			"status":  domain.RewardPaid,
			"paid_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "mark reward paid")
	}
	if res.RowsAffected == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func toDomainRewards(models []RewardModel) []*domain.Reward {
	rewards := make([]*domain.Reward, 0, len(models))
	for i := range models {
		rewards = append(rewards, ToDomainReward(&models[i]))
	}
	return rewards
}
