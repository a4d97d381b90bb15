package domain

import "time"

// 协作角色常量。
const (
	RoleViewer = "viewer" // 只读协作者
	RoleEditor = "editor" // 可编辑协作者
)

// 协作邀请状态常量。
// 状态机: pending -> accepted / rejected (由被邀请者恰好决定一次)；
// accepted 之后可被所有者或协作者本人移除 (记录被物理删除)；
// rejected 是终态，记录保留，重新邀请会创建新记录。
const (
	CollabStatePending  = "pending"
	CollabStateAccepted = "accepted"
	CollabStateRejected = "rejected"
)

// Collaboration 表示所有者向另一个用户授予 (或待确认的) 乐谱访问权。
// 不变量: 同一 (ScoreID, InviteeID) 至多存在一条非 rejected 记录。
type Collaboration struct {
	ID          uint       `gorm:"primaryKey"`             // 协作记录唯一标识符 (主键)
	ScoreID     uint       `gorm:"index;not null"`         // 乐谱 ID (外键关联 Score.ID, 添加索引)
	InviteeID   uint       `gorm:"index;not null"`         // 被邀请用户 ID (添加索引)
	InviterID   uint       `gorm:"not null"`               // 发出邀请的用户 ID
	Role        string     `gorm:"size:20;not null"`       // 角色: "viewer" 或 "editor"
	State       string     `gorm:"size:20;not null;index"` // 状态: "pending" / "accepted" / "rejected"
	CreatedAt   time.Time  `gorm:"autoCreateTime"`         // 邀请创建时间 (GORM 自动填充)
	RespondedAt *time.Time `gorm:""`                       // 被邀请者响应时间，未响应时为 NULL
}

// IsValidRole 检查角色值是否合法。
func IsValidRole(role string) bool {
	return role == RoleViewer || role == RoleEditor
}
