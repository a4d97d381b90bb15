package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MusicalElement 表示乐谱中的一个音乐元素 (音符/小节等，内容对本服务不透明)。
// Order 决定渲染/播放顺序，在同一乐谱内必须唯一 (复合唯一索引强制)，
// 允许稀疏但不允许重复——重复视为数据完整性错误而不是静默接受。
type MusicalElement struct {
	ID        uint      `gorm:"primaryKey"`                                  // 元素唯一标识符 (主键)
	ScoreID   uint      `gorm:"uniqueIndex:idx_score_order;not null"`        // 所属乐谱 ID
	Order     int       `gorm:"column:position;uniqueIndex:idx_score_order;not null"` // 顺序号，乐谱内唯一 (order 是 SQL 保留字，列名用 position)
	Content   string    `gorm:"type:text;not null"`                          // 元素内容 (不透明 JSON)
	CreatedAt time.Time `gorm:"autoCreateTime"`                              // 创建时间 (GORM 自动填充)
	UpdatedAt time.Time `gorm:"autoUpdateTime"`                              // 最后更新时间 (GORM 自动填充)
}

// Snapshot 将元素序列化为 JSON 字符串，用作变更历史的快照。
func (e *MusicalElement) Snapshot() (string, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal element snapshot: %w", err)
	}
	return string(bytes), nil
}
