package repository

import (
	"context"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
)

// ScoreFilter 定义乐谱列表查询的过滤条件。
type ScoreFilter struct {
	Kind       string // 按类型过滤 ("created"/"uploaded")，空串表示不过滤
	PublicOnly bool   // 只返回公开乐谱
}

// Page 定义分页参数。Number 从 1 开始。
type Page struct {
	Number int
	Size   int
}

// Offset 计算该页在结果集中的起始偏移。
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ScoreRepository 定义了乐谱数据的存储和检索操作。
// 带 WithHistory 后缀的方法在同一数据库事务中写入实体和变更记录:
// 任一失败则整体回滚，审计账本和被审计的数据永远一起提交。
type ScoreRepository interface {
	// FindByID 根据乐谱 ID 查找乐谱。
	// 如果乐谱不存在，应返回 ErrScoreNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Score, error)

	// ListVisible 返回 userID 可见的乐谱分页: 自己拥有的、公开的、
	// 以及通过已接受协作共享的，按 CreatedAt 降序。
	// 总数与切片必须基于同一谓词计算，保证分页一致。
	ListVisible(ctx context.Context, userID uint, filter ScoreFilter, page Page) ([]domain.Score, int64, error)

	// CreateWithHistory 创建乐谱并在同一事务中追加变更记录。
	CreateWithHistory(ctx context.Context, score *domain.Score, record *domain.ChangeRecord) error

	// CreateWithElements 创建乐谱及其全部元素并追加变更记录，同一事务。
	// 用于克隆已有乐谱。
	CreateWithElements(ctx context.Context, score *domain.Score, elements []domain.MusicalElement, record *domain.ChangeRecord) error

	// UpdateWithHistory 保存乐谱并在同一事务中追加变更记录。
	UpdateWithHistory(ctx context.Context, score *domain.Score, record *domain.ChangeRecord) error

	// Delete 删除乐谱。关联的协作、元素记录由外键级联清理，
	// 变更历史保留 (只追加账本)。
	Delete(ctx context.Context, id uint) error

	// ListFilePaths 返回所有乐谱引用的文件路径，供孤儿文件清理任务比对。
	ListFilePaths(ctx context.Context) ([]string, error)
}
