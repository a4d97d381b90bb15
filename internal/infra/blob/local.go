// Package blob 提供上传乐谱文件的本地磁盘存储。
// 每个文件写入一次后只读，删除是唯一的后续操作 (失败回滚或乐谱删除)。
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnsupportedType 表示文件 MIME 类型不在允许列表中
	ErrUnsupportedType = errors.New("blob: unsupported file type")
	// ErrFileTooLarge 表示文件超过了大小上限
	ErrFileTooLarge = errors.New("blob: file exceeds size limit")
)

// 默认允许的 MIME 类型及其扩展名 (与原有上传接口一致)
var defaultExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// LocalStore 把上传文件保存在本地目录下，文件名用 UUID 生成，
// 避免并发上传的命名冲突和路径注入。
type LocalStore struct {
	dir        string
	maxSize    int64
	extensions map[string]string
}

// NewLocalStore 创建 LocalStore 实例并确保目录存在。
// maxSize <= 0 时使用 50MB 默认值。
func NewLocalStore(dir string, maxSize int64) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob: upload directory cannot be empty")
	}
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: failed to create upload directory %s: %w", dir, err)
	}
	return &LocalStore{
		dir:        dir,
		maxSize:    maxSize,
		extensions: defaultExtensions,
	}, nil
}

// Save 校验类型和大小后把 r 的内容写入一个新文件，返回文件路径。
// 写入中发现超限会删除半成品文件再返回 ErrFileTooLarge。
func (s *LocalStore) Save(r io.Reader, mimeType string) (string, int64, error) {
	ext, ok := s.extensions[strings.ToLower(mimeType)]
	if !ok {
		return "", 0, ErrUnsupportedType
	}

	name := fmt.Sprintf("partitura-%s%s", uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("blob: failed to create file %s: %w", path, err)
	}

	// 多读一个字节以区分 "恰好达到上限" 和 "超过上限"
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeQuiet(path)
		return "", 0, fmt.Errorf("blob: failed to write file %s: %w", path, err)
	}
	if written > s.maxSize {
		s.removeQuiet(path)
		return "", 0, ErrFileTooLarge
	}

	return path, written, nil
}

// Delete 删除一个已保存的文件。文件不存在不算错误 (删除是幂等的)。
func (s *LocalStore) Delete(path string) error {
	// 只允许删除本存储目录下的文件
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("blob: refusing to delete path outside store: %s", path)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("blob: failed to delete file %s: %w", path, err)
	}
	return nil
}

// ListFiles 返回存储目录下全部文件的路径，供孤儿文件清理任务使用。
func (s *LocalStore) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("blob: failed to read upload directory %s: %w", s.dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}

func (s *LocalStore) removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Warn("blob: failed to clean up partial file")
	}
}
