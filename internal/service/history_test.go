package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// 变更历史的完整性: N 次变更产生恰好 N 条记录，时间戳不减，
// 依次重放 after 快照可以重建乐谱的最终状态。

func TestChangeHistory_ScoreMutationsReplay(t *testing.T) {
	// Arrange
	f := newScoreServiceFixture(t)
	ctx := context.Background()
	var ledger []domain.ChangeRecord

	f.scoreRepo.On("CreateWithHistory", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			score := args.Get(1).(*domain.Score)
			record := args.Get(2).(*domain.ChangeRecord)
			score.ID = 42
			record.ScoreID = score.ID // 仓库在事务内回填新乐谱的 ID
			ledger = append(ledger, *record)
		}).
		Return(nil).Once()

	// Act: 创建 + 两次更新，共 3 次变更
	created, err := f.svc.Create(ctx, 1, service.CreateScoreInput{Title: "Nocturne"})
	require.NoError(t, err)

	f.scoreRepo.On("FindByID", mock.Anything, uint(42)).Return(created, nil).Twice()
	f.scoreRepo.On("UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ledger = append(ledger, *args.Get(2).(*domain.ChangeRecord))
		}).
		Return(nil).Twice()

	newTitle := "Nocturne Op. 9"
	_, err = f.svc.Update(ctx, 1, 42, domain.ScorePatch{Title: &newTitle})
	require.NoError(t, err)

	newTempo := 80
	_, err = f.svc.Update(ctx, 1, 42, domain.ScorePatch{Tempo: &newTempo})
	require.NoError(t, err)

	// Assert: 恰好 3 条记录，类型与顺序正确
	require.Len(t, ledger, 3)
	assert.Equal(t, domain.ChangeCreated, ledger[0].Kind)
	assert.Equal(t, domain.ChangeUpdated, ledger[1].Kind)
	assert.Equal(t, domain.ChangeUpdated, ledger[2].Kind)
	for i := 1; i < len(ledger); i++ {
		assert.False(t, ledger[i].Timestamp.Before(ledger[i-1].Timestamp),
			"记录时间戳必须不减")
	}

	// 每条 updated 记录的 before 快照等于上一条记录之后的状态
	var beforeFirstUpdate domain.Score
	require.NoError(t, json.Unmarshal([]byte(ledger[1].Before), &beforeFirstUpdate))
	assert.Equal(t, "Nocturne", beforeFirstUpdate.Title)
	var beforeSecondUpdate domain.Score
	require.NoError(t, json.Unmarshal([]byte(ledger[2].Before), &beforeSecondUpdate))
	assert.Equal(t, "Nocturne Op. 9", beforeSecondUpdate.Title)
	assert.Equal(t, 120, beforeSecondUpdate.Tempo)

	// 依次重放 after 快照重建最终状态
	var replayed domain.Score
	for _, record := range ledger {
		require.NoError(t, record.DecodeAfter(&replayed))
	}
	assert.Equal(t, "Nocturne Op. 9", replayed.Title)
	assert.Equal(t, 80, replayed.Tempo)
	assert.Equal(t, "4/4", replayed.TimeSignature)
	assert.Equal(t, "C", replayed.KeySignature)

	f.assertExpectations(t)
}

func TestChangeHistory_ElementMutationsReplay(t *testing.T) {
	// Arrange
	f := newElementServiceFixture(t)
	ctx := context.Background()
	score := &domain.Score{ID: 42, OwnerID: 1}
	var ledger []domain.ChangeRecord

	f.scoreRepo.On("FindByID", mock.Anything, uint(42)).Return(score, nil).Times(3)
	f.elementRepo.On("CreateWithHistory", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.MusicalElement).ID = 7
			ledger = append(ledger, *args.Get(2).(*domain.ChangeRecord))
		}).
		Return(nil).Once()

	// Act: 新增、修改、删除同一元素，共 3 次变更
	added, err := f.svc.Add(ctx, 1, 42, 0, `{"type":"note","pitch":"C4"}`)
	require.NoError(t, err)

	f.elementRepo.On("FindByID", mock.Anything, uint(7)).Return(added, nil).Twice()
	f.elementRepo.On("UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ledger = append(ledger, *args.Get(2).(*domain.ChangeRecord))
		}).
		Return(nil).Once()
	f.elementRepo.On("DeleteWithHistory", mock.Anything, uint(7), mock.Anything).
		Run(func(args mock.Arguments) {
			ledger = append(ledger, *args.Get(2).(*domain.ChangeRecord))
		}).
		Return(nil).Once()

	newContent := `{"type":"note","pitch":"E4"}`
	_, err = f.svc.Update(ctx, 1, 42, 7, nil, &newContent)
	require.NoError(t, err)
	require.NoError(t, f.svc.Remove(ctx, 1, 42, 7))

	// Assert: 恰好 3 条记录
	require.Len(t, ledger, 3)
	assert.Equal(t, domain.ChangeElementAdded, ledger[0].Kind)
	assert.Equal(t, domain.ChangeElementUpdate, ledger[1].Kind)
	assert.Equal(t, domain.ChangeElementRemove, ledger[2].Kind)

	// 重放: 新增和修改的 after 快照给出元素当时的状态
	var replayed domain.MusicalElement
	require.NoError(t, ledger[0].DecodeAfter(&replayed))
	assert.Equal(t, `{"type":"note","pitch":"C4"}`, replayed.Content)
	require.NoError(t, ledger[1].DecodeAfter(&replayed))
	assert.Equal(t, `{"type":"note","pitch":"E4"}`, replayed.Content)

	// 删除记录只有 before 快照，after 为空即元素不复存在
	assert.Empty(t, ledger[2].After)
	var removed domain.MusicalElement
	require.NoError(t, json.Unmarshal([]byte(ledger[2].Before), &removed))
	assert.Equal(t, uint(7), removed.ID)

	f.assertExpectations(t)
}
