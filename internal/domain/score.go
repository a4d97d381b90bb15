package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Score 的类型常量。
const (
	ScoreKindCreated  = "created"  // 在编辑器中从零创建的乐谱
	ScoreKindUploaded = "uploaded" // 作为文件上传的乐谱 (PDF/图片等)
)

// Score 表示一份乐谱文档及其元数据。
// OwnerID 在创建后不可变，任何更新路径都不允许修改它。
type Score struct {
	ID            uint      `gorm:"primaryKey"`                    // 乐谱唯一标识符 (主键)
	OwnerID       uint      `gorm:"index;not null"`                // 所有者用户 ID (外键关联 User.ID, 添加索引)
	Title         string    `gorm:"size:255;not null"`             // 标题，必填
	Description   string    `gorm:"type:text"`                     // 描述，可选
	Kind          string    `gorm:"size:20;not null;index"`        // 类型: "created" 或 "uploaded"
	IsPublic      bool      `gorm:"not null;default:false;index"`  // 是否公开可读
	KeySignature  string    `gorm:"size:10"`                       // 调号，例如 "C", "Am"
	TimeSignature string    `gorm:"size:10"`                       // 拍号，例如 "4/4"
	Tempo         int       `gorm:""`                              // 速度 (BPM)
	MusicalData   string    `gorm:"type:text"`                     // 不透明的音乐数据 (JSON 字符串)，本服务不解释其内容
	FilePath      string    `gorm:"size:512"`                      // 上传文件在 blob 存储中的路径 (仅 uploaded)
	FileFormat    string    `gorm:"size:100"`                      // 上传文件的 MIME 类型 (仅 uploaded)
	FileSize      int64     `gorm:""`                              // 上传文件大小 (字节)
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`          // 创建时间 (GORM 自动填充, 列表排序用)
	ModifiedAt    time.Time `gorm:"autoUpdateTime"`                // 最后修改时间 (GORM 自动填充)
}

// ScorePatch 定义了更新乐谱时允许修改的字段 (显式白名单)。
// 指针为 nil 表示该字段不修改。OwnerID / ID 等字段故意不在其中，
// 防止任意 JSON patch 悄悄改变所有权。
type ScorePatch struct {
	Title         *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Description   *string `json:"description,omitempty"`
	KeySignature  *string `json:"key_signature,omitempty" binding:"omitempty,max=10"`
	TimeSignature *string `json:"time_signature,omitempty" binding:"omitempty,max=10"`
	Tempo         *int    `json:"tempo,omitempty" binding:"omitempty,min=1,max=400"`
	MusicalData   *string `json:"musical_data,omitempty"`
}

// IsEmpty 判断 patch 是否没有任何待修改字段。
func (p ScorePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.KeySignature == nil &&
		p.TimeSignature == nil && p.Tempo == nil && p.MusicalData == nil
}

// Apply 将白名单内的字段合并到 Score 上。
func (p ScorePatch) Apply(s *Score) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.KeySignature != nil {
		s.KeySignature = *p.KeySignature
	}
	if p.TimeSignature != nil {
		s.TimeSignature = *p.TimeSignature
	}
	if p.Tempo != nil {
		s.Tempo = *p.Tempo
	}
	if p.MusicalData != nil {
		s.MusicalData = *p.MusicalData
	}
}

// Snapshot 将 Score 序列化为 JSON 字符串，用作变更历史的 before/after 快照。
// 序列化本身就是深拷贝，之后对原对象的修改不会影响已写入的历史。
func (s *Score) Snapshot() (string, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal score snapshot: %w", err)
	}
	return string(bytes), nil
}
