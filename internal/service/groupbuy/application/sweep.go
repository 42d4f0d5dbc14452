// internal/service/groupbuy/application/sweep.go
package application

import (
	"context"
	"errors"
	"time"

	"pinhub/internal/pkg/logger"
	"pinhub/internal/service/groupbuy/domain"
)

// RunSweep 扫描所有到期仍 active 的拼团，逐个过期并退款。
// 单个拼团失败不会中断整轮扫描，失败的下一轮会再被捞起。
func (s *GroupService) RunSweep(ctx context.Context, refundTimeout time.Duration) (int, error) {
	now := time.Now().UTC()
	expired, err := s.groups.ListExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, group := range expired {
		if err := s.ExpireAndRefund(ctx, group.ID, refundTimeout); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("group_id", group.ID).Msg("sweep: failed to expire group")
			continue
		}
		processed++
	}

	if len(expired) > 0 {
		logger.Ctx(ctx).Info().
			Int("candidates", len(expired)).
			Int("processed", processed).
			Msg("sweep pass finished")
	}
	return processed, nil
}

// ExpireAndRefund 把一个到期拼团置为 expired 并退还发布费。
// Sweep 和管理端手工过期共用这一条路径，退款语义只此一处。
//
// 过期前重查一次成团条件：凭证在扫描间隙刚好凑齐时成团优先。
// 退款分两步：先落定 expired，再调网关；退款失败只记 refund_error，
// 拼团停在 expired，等下一轮重试。
func (s *GroupService) ExpireAndRefund(ctx context.Context, groupID string, refundTimeout time.Duration) error {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Status != domain.GroupActive {
		// 已经被别的路径处理过；expired 说明上次退款失败，继续走退款。
		if group.Status != domain.GroupExpired {
			return nil
		}
		return s.refund(ctx, group, refundTimeout)
	}

	approved, err := s.members.ListApproved(ctx, groupID)
	if err != nil {
		return err
	}
	if len(approved) >= domain.Quorum {
		logger.Ctx(ctx).Info().Str("group_id", groupID).Msg("sweep: quorum met at expiry, completing instead")
		_, err := s.MaybeComplete(ctx, groupID)
		return err
	}

	now := time.Now().UTC()
	if err := group.Expire(now); err != nil {
		return nil
	}
	if err := s.groups.Expire(ctx, group); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			return nil
		}
		return err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", groupID).
		Int("approved", len(approved)).
		Msg("group expired without quorum")

	if s.notifier != nil {
		event := &domain.GroupExpiredEvent{GroupID: groupID, LeaderID: group.LeaderUserID, ExpiredAt: now}
		if err := s.notifier.GroupExpired(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("group_id", groupID).Msg("failed to publish expiry event")
		}
	}

	return s.refund(ctx, group, refundTimeout)
}

// refund 对一个 expired 拼团退还发布费。订单必须存在且已支付，
// 否则没有可退的钱，直接停在 expired。
func (s *GroupService) refund(ctx context.Context, group *domain.Group, refundTimeout time.Duration) error {
	order, err := s.orders.FindByGroupID(ctx, group.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Warn().Str("group_id", group.ID).Msg("refund skipped: no post order")
			return nil
		}
		return err
	}
	if order.Status != domain.OrderPaid {
		return nil
	}

	refundCtx := ctx
	if refundTimeout > 0 {
		var cancel context.CancelFunc
		refundCtx, cancel = context.WithTimeout(ctx, refundTimeout)
		defer cancel()
	}

	if err := s.gateway.Refund(refundCtx, order.TradeNo, order.Amount); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("group_id", group.ID).
			Str("trade_no", order.TradeNo).
			Msg("refund failed, will retry next sweep")
		if setErr := s.orders.SetRefundError(ctx, order.OrderID, err.Error()); setErr != nil {
			logger.Ctx(ctx).Error().Err(setErr).Str("order_id", order.OrderID).Msg("failed to record refund error")
		}
		return nil
	}

	now := time.Now().UTC()
	if err := order.MarkRefunded(now); err != nil {
		return nil
	}
	if err := group.MarkRefunded(); err != nil {
		return nil
	}
	if err := s.groups.MarkRefunded(ctx, group, order); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			return nil
		}
		return err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", group.ID).
		Str("order_id", order.OrderID).
		Float64("amount", order.Amount).
		Msg("post fee refunded")

	if s.notifier != nil {
		event := &domain.GroupRefundedEvent{
			GroupID:  group.ID,
			OrderID:  order.OrderID,
			LeaderID: group.LeaderUserID,
			Amount:   order.Amount,
		}
		if err := s.notifier.GroupRefunded(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("group_id", group.ID).Msg("failed to publish refund event")
		}
	}
	return nil
}
