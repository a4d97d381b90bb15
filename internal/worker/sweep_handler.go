package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
	"github.com/aitor-glitch-blde/app-partituras/internal/tasks"
)

// FileLister 提供 blob 存储目录的文件清单和删除能力
type FileLister interface {
	ListFiles() ([]string, error)
	Delete(path string) error
}

// UploadSweepHandler 处理周期性的孤儿文件清理任务:
// 对比磁盘上的文件和数据库引用的路径，删除无人引用且足够旧的文件。
// 孤儿产生于上传成功但数据库写入失败、而清理又同样失败的窗口。
type UploadSweepHandler struct {
	scoreRepo repository.ScoreRepository
	files     FileLister
}

// NewUploadSweepHandler 创建 Handler 实例
func NewUploadSweepHandler(scoreRepo repository.ScoreRepository, files FileLister) *UploadSweepHandler {
	if scoreRepo == nil {
		panic("ScoreRepository cannot be nil for UploadSweepHandler")
	}
	if files == nil {
		panic("FileLister cannot be nil for UploadSweepHandler")
	}
	return &UploadSweepHandler{scoreRepo: scoreRepo, files: files}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *UploadSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	logCtx.Info("Processing upload sweep task...")

	var payload tasks.UploadSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	minAge := time.Duration(payload.MinAgeMinutes) * time.Minute
	if minAge <= 0 {
		minAge = time.Hour
	}

	// 1. 收集数据库引用的全部文件路径
	referenced, err := h.scoreRepo.ListFilePaths(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list referenced file paths")
		return fmt.Errorf("failed to list referenced paths: %w", err)
	}
	refSet := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		refSet[p] = struct{}{}
	}

	// 2. 遍历磁盘文件，删除无引用且超过最小保留时间的
	onDisk, err := h.files.ListFiles()
	if err != nil {
		logCtx.WithError(err).Error("Failed to list files on disk")
		return fmt.Errorf("failed to list files on disk: %w", err)
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, path := range onDisk {
		if _, ok := refSet[path]; ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			// 可能已被并发删除
			continue
		}
		if info.ModTime().After(cutoff) {
			// 太新: 对应的数据库记录可能还在写入途中
			continue
		}
		if err := h.files.Delete(path); err != nil {
			logCtx.WithError(err).WithField("path", path).Warn("Failed to delete orphaned file")
			continue
		}
		removed++
	}

	logCtx.WithFields(logrus.Fields{
		"on_disk":    len(onDisk),
		"referenced": len(referenced),
		"removed":    removed,
	}).Info("Upload sweep task processed successfully")
	return nil
}
