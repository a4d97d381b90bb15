package tasks

import "encoding/json"

// 定义任务类型常量
const (
	TypeUploadSweep = "upload:sweep" // 孤儿上传文件清理任务类型
)

// UploadSweepPayload 定义了孤儿文件清理任务的数据结构。
// MinAgeMinutes 是文件的最小保留时间: 比它更新的文件可能正处于
// "已落盘、数据库记录尚未提交" 的窗口期，不能删。
type UploadSweepPayload struct {
	MinAgeMinutes int `json:"min_age_minutes"`
}

// NewUploadSweepTask 创建孤儿文件清理任务的 payload
func NewUploadSweepTask(minAgeMinutes int) ([]byte, error) {
	if minAgeMinutes <= 0 {
		minAgeMinutes = 60
	}
	payload := UploadSweepPayload{MinAgeMinutes: minAgeMinutes}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}
