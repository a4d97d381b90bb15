package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// 变更类型常量。
const (
	ChangeCreated       = "created"              // 乐谱创建
	ChangeUpdated       = "updated"              // 乐谱元数据/内容更新
	ChangeElementAdded  = "elementAdded"         // 新增音乐元素
	ChangeElementUpdate = "elementUpdated"       // 修改音乐元素
	ChangeElementRemove = "elementRemoved"       // 删除音乐元素
	ChangeCollabGranted = "collaborationGranted" // 协作权生效 (接受邀请或角色变更)
	ChangeCollabRevoked = "collaborationRevoked" // 协作权撤销 (移除协作者)
)

// ChangeRecord 表示乐谱上一次变更的不可变审计记录。
// 只追加: 一旦写入绝不修改或删除。单个乐谱内按 (Timestamp, ID) 全序，
// 依次重放 before -> after 即可重建乐谱的最终状态。
type ChangeRecord struct {
	ID        uint      `gorm:"primaryKey"`       // 记录唯一标识符 (主键，同时充当同时间戳记录的插入序)
	ScoreID   uint      `gorm:"index;not null"`   // 变更所属乐谱 ID (添加索引)
	ActorID   uint      `gorm:"index;not null"`   // 执行变更的用户 ID (添加索引)
	Kind      string    `gorm:"size:30;not null"` // 变更类型，见上方常量
	Before    string    `gorm:"type:text"`        // 变更前快照 (JSON 字符串)，创建类变更为空
	After     string    `gorm:"type:text"`        // 变更后快照 (JSON 字符串)，删除类变更为空
	Timestamp time.Time `gorm:"index;not null"`   // 变更发生时间 (添加索引)
}

// DecodeAfter 将 After 快照解析到目标结构体，用于历史重放。
func (r *ChangeRecord) DecodeAfter(v interface{}) error {
	if r.After == "" {
		return fmt.Errorf("change record %d has no after snapshot", r.ID)
	}
	if err := json.Unmarshal([]byte(r.After), v); err != nil {
		return fmt.Errorf("failed to unmarshal after snapshot of record %d: %w", r.ID, err)
	}
	return nil
}
