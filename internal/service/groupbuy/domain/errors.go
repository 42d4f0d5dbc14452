// internal/service/groupbuy/domain/errors.go
package domain

import "errors"

var (
	// ErrGroupNotFound 查询的拼团不存在。
	ErrGroupNotFound = errors.New("group not found")
	// ErrOrderNotFound 查询的发布费订单不存在。
	ErrOrderNotFound = errors.New("post order not found")
	// ErrMemberNotFound 查询的凭证记录不存在。
	ErrMemberNotFound = errors.New("group member not found")
	// ErrStateConflict 实体不在流转所要求的状态上。
	// 持久化层条件更新没有命中行时也返回它，表示竞争对方已经完成了权威流转。
	ErrStateConflict = errors.New("entity is not in the expected state")
	// ErrGroupNotActive 拼团不在可提交凭证的状态。
	ErrGroupNotActive = errors.New("group is not active")
	// ErrGroupExpired 拼团已过有效期。
	ErrGroupExpired = errors.New("group has expired")
	// ErrGroupFull 参团名额已满。
	ErrGroupFull = errors.New("group is full")
)

// ValidationError 表示调用方输入不合法，直接拒绝且不产生任何状态变更。
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// ErrInvalidInput 构造一个校验错误。
func ErrInvalidInput(reason string) error {
	return ValidationError{Reason: reason}
}

// IsValidation 判断一个错误是否属于输入校验类。
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
