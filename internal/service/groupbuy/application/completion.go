// internal/service/groupbuy/application/completion.go
package application

import (
	"context"
	"errors"
	"time"

	"pinhub/internal/pkg/logger"
	"pinhub/internal/service/groupbuy/domain"
)

// MaybeComplete 检查拼团是否满足成团条件，满足则原子地完成并写入奖励，
// 返回本次调用是否真的完成了拼团。在任意一次审核通过后调用，可安全重复：
// 条件更新和 insert-if-absent 保证并发触发时只有一方生效，输掉竞争直接返回。
func (s *GroupService) MaybeComplete(ctx context.Context, groupID string) (bool, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group.Status != domain.GroupActive {
		return false, nil
	}

	approved, err := s.members.ListApproved(ctx, groupID)
	if err != nil {
		return false, err
	}
	if len(approved) < domain.Quorum {
		return false, nil
	}

	now := time.Now().UTC()
	if err := group.Complete(now); err != nil {
		return false, nil
	}

	// 奖励给最早通过审核的前三个提交者，ListApproved 按提交时间升序。
	winners := approved[:domain.Quorum]
	rewards := make([]*domain.Reward, 0, domain.Quorum)
	winnerIDs := make([]string, 0, domain.Quorum)
	for _, m := range winners {
		rewards = append(rewards, domain.NewReward(groupID, m.UserID, m.Username, s.cfg.GroupReward))
		winnerIDs = append(winnerIDs, m.UserID)
	}

	if err := s.groups.CompleteWithRewards(ctx, group, rewards); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// 并发的另一次判定已经完成了这个拼团。
			return false, nil
		}
		return false, err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", groupID).
		Strs("winners", winnerIDs).
		Float64("reward_each", s.cfg.GroupReward).
		Msg("group completed")

	if s.notifier != nil {
		event := &domain.GroupCompletedEvent{
			GroupID:     groupID,
			WinnerIDs:   winnerIDs,
			RewardEach:  s.cfg.GroupReward,
			CompletedAt: now,
		}
		if err := s.notifier.GroupCompleted(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("group_id", groupID).Msg("failed to publish completion event")
		}
	}
	return true, nil
}
