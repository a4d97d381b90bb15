package service

import (
	"context"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// resolveAccess 取出乐谱的协作记录并计算 userID 的有效访问级别。
// 权限判定只存在这一条路径，各 handler/service 不得重复实现
// "先查所有者再查公开再查协作" 的逻辑。
func resolveAccess(ctx context.Context, collabRepo repository.CollaborationRepository, userID uint, score *domain.Score) (domain.AccessLevel, error) {
	// 所有者不需要查协作表
	if score != nil && userID == score.OwnerID {
		return domain.AccessWrite, nil
	}
	collabs, err := collabRepo.FindByScore(ctx, score.ID)
	if err != nil {
		return domain.AccessNone, mapRepoError(err)
	}
	return domain.EffectiveAccess(userID, score, collabs), nil
}
