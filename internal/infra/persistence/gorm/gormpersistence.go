// Package gormpersistence 提供各 Repository 接口的 GORM/MySQL 实现。
package gormpersistence

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// storeTimeout 是单次存储调用允许的最长时间。
// 所有方法都在请求上下文之上再套一层有界超时，避免慢查询挂住请求。
const storeTimeout = 5 * time.Second

// withTimeout 基于调用方的 ctx 派生带超时的 ctx。
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// mapStoreError 将底层数据库错误映射为仓库层错误。
// 超时映射为 ErrTimeout (调用方可重试)，MySQL 1062 映射为 ErrDuplicateEntry。
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return repository.ErrTimeout
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return repository.ErrDuplicateEntry
	}
	return err
}
