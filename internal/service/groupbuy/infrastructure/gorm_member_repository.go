// internal/service/groupbuy/infrastructure/gorm_member_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pinhub/internal/service/groupbuy/domain"
)

// GormMemberRepository 是 domain.MemberRepository 的 GORM 实现
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository 创建一个新的 GORM 仓储实例
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// Save 按 (group_id, user_id) upsert 成员记录。
// 重新提交凭证覆盖凭证内容并把状态拉回 pending。
func (r *GormMemberRepository) Save(ctx context.Context, member *domain.GroupMember) error {
	model := FromDomainMember(member)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "proof_text", "proof_url", "submitted_at", "reviewed_at",
		}),
	}).Create(model).Error
	if err != nil {
		return pkgerrors.Wrap(err, "save member")
	}
	member.ID = model.ID
	return nil
}

// FindByID 根据自增 ID 查找成员。
func (r *GormMemberRepository) FindByID(ctx context.Context, id int64) (*domain.GroupMember, error) {
	var model GroupMemberModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return ToDomainMember(&model), nil
}

// FindByGroupAndUser 查找某用户在某拼团里的成员记录。
func (r *GormMemberRepository) FindByGroupAndUser(ctx context.Context, groupID, userID string) (*domain.GroupMember, error) {
	var model GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return ToDomainMember(&model), nil
}

// ListByGroup 返回拼团的全部成员，按提交时间升序。
func (r *GormMemberRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.GroupMember, error) {
	var models []GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMembers(models), nil
}

// ListApproved 返回已通过审核的成员，按提交时间升序。
// 完成判定取前三名就依赖这个顺序。
func (r *GormMemberRepository) ListApproved(ctx context.Context, groupID string) ([]*domain.GroupMember, error) {
	var models []GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, domain.MemberApproved).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMembers(models), nil
}

// ListByUser 返回某用户名下的全部凭证，按提交时间降序。
func (r *GormMemberRepository) ListByUser(ctx context.Context, userID string) ([]*domain.GroupMember, error) {
	var models []GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMembers(models), nil
}

// CountJoiners 统计非团长的成员数量，用于 2 人跟团上限。
func (r *GormMemberRepository) CountJoiners(ctx context.Context, groupID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&GroupMemberModel{}).
		Where("group_id = ? AND role = ?", groupID, domain.RoleMember).
		Count(&count).Error
	return int(count), err
}

// ListPending 返回全部待审核的成员记录，按提交时间升序。
func (r *GormMemberRepository) ListPending(ctx context.Context) ([]*domain.GroupMember, error) {
	var models []GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.MemberPending).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMembers(models), nil
}

func toDomainMembers(models []GroupMemberModel) []*domain.GroupMember {
	members := make([]*domain.GroupMember, 0, len(models))
	for i := range models {
		members = append(members, ToDomainMember(&models[i]))
	}
	return members
}
