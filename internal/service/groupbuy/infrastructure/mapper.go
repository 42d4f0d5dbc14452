// internal/service/groupbuy/infrastructure/mapper.go
package infrastructure

import (
	"pinhub/internal/service/groupbuy/domain"
)

// ToDomainGroup 将数据库模型转换为领域模型
func ToDomainGroup(model *GroupModel) *domain.Group {
	if model == nil {
		return nil
	}
	return &domain.Group{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		TargetURL:      model.TargetURL,
		LeaderUserID:   model.LeaderUserID,
		LeaderUsername: model.LeaderUsername,
		Status:         model.Status,
		PaymentOrderID: model.PaymentOrderID,
		PaymentTradeNo: model.PaymentTradeNo,
		CreatedAt:      model.CreatedAt,
		ActivatedAt:    model.ActivatedAt,
		ExpiresAt:      model.ExpiresAt,
		CompletedAt:    model.CompletedAt,
		ExpiredAt:      model.ExpiredAt,
	}
}

// FromDomainGroup 将领域模型转换为数据库模型 (用于插入)
func FromDomainGroup(dmn *domain.Group) *GroupModel {
	if dmn == nil {
		return nil
	}
	return &GroupModel{
		ID:             dmn.ID,
		Title:          dmn.Title,
		Description:    dmn.Description,
		TargetURL:      dmn.TargetURL,
		LeaderUserID:   dmn.LeaderUserID,
		LeaderUsername: dmn.LeaderUsername,
		Status:         dmn.Status,
		PaymentOrderID: dmn.PaymentOrderID,
		PaymentTradeNo: dmn.PaymentTradeNo,
		CreatedAt:      dmn.CreatedAt,
		ActivatedAt:    dmn.ActivatedAt,
		ExpiresAt:      dmn.ExpiresAt,
		CompletedAt:    dmn.CompletedAt,
		ExpiredAt:      dmn.ExpiredAt,
	}
}

// ToDomainMember 将数据库模型转换为领域模型
func ToDomainMember(model *GroupMemberModel) *domain.GroupMember {
	if model == nil {
		return nil
	}
	return &domain.GroupMember{
		ID:          model.ID,
		GroupID:     model.GroupID,
		UserID:      model.UserID,
		Username:    model.Username,
		Role:        model.Role,
		Status:      model.Status,
		ProofText:   model.ProofText,
		ProofURL:    model.ProofURL,
		SubmittedAt: model.SubmittedAt,
		ReviewedAt:  model.ReviewedAt,
	}
}

// FromDomainMember 将领域模型转换为数据库模型
func FromDomainMember(dmn *domain.GroupMember) *GroupMemberModel {
	if dmn == nil {
		return nil
	}
	return &GroupMemberModel{
		ID:          dmn.ID,
		GroupID:     dmn.GroupID,
		UserID:      dmn.UserID,
		Username:    dmn.Username,
		Role:        dmn.Role,
		Status:      dmn.Status,
		ProofText:   dmn.ProofText,
		ProofURL:    dmn.ProofURL,
		SubmittedAt: dmn.SubmittedAt,
		ReviewedAt:  dmn.ReviewedAt,
	}
}

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *PostOrderModel) *domain.PostOrder {
	if model == nil {
		return nil
	}
	return &domain.PostOrder{
		OrderID:     model.OrderID,
		GroupID:     model.GroupID,
		UserID:      model.UserID,
		Username:    model.Username,
		Amount:      model.Amount,
		Status:      model.Status,
		TradeNo:     model.TradeNo,
		RefundError: model.RefundError,
		CreatedAt:   model.CreatedAt,
		PaidAt:      model.PaidAt,
		RefundedAt:  model.RefundedAt,
	}
}

// FromDomainOrder 将领域模型转换为数据库模型
func FromDomainOrder(dmn *domain.PostOrder) *PostOrderModel {
	if dmn == nil {
		return nil
	}
	return &PostOrderModel{
		OrderID:     dmn.OrderID,
		GroupID:     dmn.GroupID,
		UserID:      dmn.UserID,
		Username:    dmn.Username,
		Amount:      dmn.Amount,
		Status:      dmn.Status,
		TradeNo:     dmn.TradeNo,
		RefundError: dmn.RefundError,
		CreatedAt:   dmn.CreatedAt,
		PaidAt:      dmn.PaidAt,
		RefundedAt:  dmn.RefundedAt,
	}
}

// ToDomainReward 将数据库模型转换为领域模型
func ToDomainReward(model *RewardModel) *domain.Reward {
	if model == nil {
		return nil
	}
	return &domain.Reward{
		ID:        model.ID,
		GroupID:   model.GroupID,
		UserID:    model.UserID,
		Username:  model.Username,
		Amount:    model.Amount,
		Status:    model.Status,
		CreatedAt: model.CreatedAt,
		PaidAt:    model.PaidAt,
	}
}

// FromDomainReward 将领域模型转换为数据库模型
func FromDomainReward(dmn *domain.Reward) *RewardModel {
	if dmn == nil {
		return nil
	}
	return &RewardModel{
		ID:        dmn.ID,
		GroupID:   dmn.GroupID,
		UserID:    dmn.UserID,
		Username:  dmn.Username,
		Amount:    dmn.Amount,
		Status:    dmn.Status,
		CreatedAt: dmn.CreatedAt,
		PaidAt:    dmn.PaidAt,
	}
}
