// internal/service/groupbuy/application/reconciler.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pinhub/internal/pkg/logger"
	"pinhub/internal/service/groupbuy/domain"
)

// NotifyOutcome 是处理一次异步支付通知的结论。
// 对网关的应答由 interfaces 层决定：BadSignature 回 fail，其余回 success。
type NotifyOutcome int

const (
	// OutcomeBadSignature 签名校验失败，通知被丢弃。
	OutcomeBadSignature NotifyOutcome = iota
	// OutcomeIgnored 签名合法但与当前状态无关（非成功状态、未知订单、金额不符）。
	OutcomeIgnored
	// OutcomeDuplicate 重放通知：订单早已不在 pending。
	OutcomeDuplicate
	// OutcomeApplied 本次通知生效，拼团已激活。
	OutcomeApplied
)

func (o NotifyOutcome) String() string {
	switch o {
	case OutcomeBadSignature:
		return "bad_signature"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeApplied:
		return "applied"
	}
	return "unknown"
}

const tradeStatusSuccess = "TRADE_SUCCESS"

// HandleNotify 对账一次支付网关的异步通知。
// 幂等：同一笔通知任意次数重放，激活恰好发生一次。
func (s *GroupService) HandleNotify(ctx context.Context, params map[string]string) (NotifyOutcome, error) {
	if !s.gateway.VerifyNotify(params) {
		logger.Ctx(ctx).Warn().
			Str("out_trade_no", params["out_trade_no"]).
			Msg("payment notify rejected: bad signature")
		return OutcomeBadSignature, nil
	}

	if params["trade_status"] != tradeStatusSuccess {
		logger.Ctx(ctx).Info().
			Str("out_trade_no", params["out_trade_no"]).
			Str("trade_status", params["trade_status"]).
			Msg("payment notify ignored: not a success status")
		return OutcomeIgnored, nil
	}

	orderID := params["out_trade_no"]
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Warn().Str("out_trade_no", orderID).Msg("payment notify ignored: unknown order")
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}

	// 签名覆盖 money，这里再对一次账面金额，防御商户侧配置错误。
	if params["money"] != fmt.Sprintf("%.2f", order.Amount) {
		logger.Ctx(ctx).Warn().
			Str("out_trade_no", orderID).
			Str("money", params["money"]).
			Float64("expected", order.Amount).
			Msg("payment notify ignored: amount mismatch")
		return OutcomeIgnored, nil
	}

	if order.Status != domain.OrderPending {
		return OutcomeDuplicate, nil
	}

	group, err := s.groups.FindByID(ctx, order.GroupID)
	if err != nil {
		return OutcomeIgnored, err
	}

	now := time.Now().UTC()
	tradeNo := params["trade_no"]
	if err := order.MarkPaid(tradeNo, now); err != nil {
		return OutcomeDuplicate, nil
	}
	if err := group.Activate(tradeNo, now, s.cfg.ExpiryWindow); err != nil {
		return OutcomeDuplicate, nil
	}

	if err := s.groups.ActivateWithPayment(ctx, group, order); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// 并发重放输掉了条件更新，权威激活已由另一次通知完成。
			return OutcomeDuplicate, nil
		}
		return OutcomeIgnored, err
	}

	logger.Ctx(ctx).Info().
		Str("group_id", group.ID).
		Str("order_id", order.OrderID).
		Str("trade_no", tradeNo).
		Time("expires_at", *group.ExpiresAt).
		Msg("payment reconciled, group activated")

	if s.notifier != nil {
		event := &domain.GroupActivated{
			GroupID:     group.ID,
			OrderID:     order.OrderID,
			TradeNo:     tradeNo,
			LeaderID:    group.LeaderUserID,
			ActivatedAt: now,
			ExpiresAt:   *group.ExpiresAt,
		}
		if err := s.notifier.GroupActivated(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("group_id", group.ID).Msg("failed to publish activation event")
		}
	}
	return OutcomeApplied, nil
}
