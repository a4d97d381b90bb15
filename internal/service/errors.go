package service

import (
	"errors"

	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

var (
	// 资源不存在，或请求者对其没有任何访问权。
	// 读取被拒统一返回 NotFound 而不是 Forbidden，避免泄露私有乐谱的存在。
	ErrScoreNotFound         = errors.New("score not found")
	ErrCollaborationNotFound = errors.New("collaboration not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrElementNotFound       = errors.New("element not found")

	// ErrForbidden 表示请求者已认证、实体对其可见，但访问级别不足。
	ErrForbidden = errors.New("insufficient access for this operation")
	// ErrConflict 表示唯一性/状态不变量被违反 (例如重复的待处理邀请)。
	ErrConflict = errors.New("operation conflicts with existing state")
	// ErrInvalidState 表示状态机不允许从当前状态执行该迁移。
	ErrInvalidState = errors.New("invalid state for this transition")
	// ErrStoreUnavailable 表示存储超时或暂不可用，调用方可安全重试。
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
	// ErrValidation 表示输入不合法 (例如缺少标题)。
	ErrValidation = errors.New("invalid input")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInternalServer       = errors.New("internal server error")
)

// mapRepoError 将仓库层错误映射到服务层错误。
// 超时单独成类: 对调用者而言它是可重试的瞬时失败，而不是笼统的内部错误。
// 存储实现细节绝不原样透传给调用方。
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrTimeout) {
		return ErrStoreUnavailable
	}
	return ErrInternalServer
}
