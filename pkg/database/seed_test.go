package database

import (
	"testing"
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrateSeedsCatalogOnce(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Migrate(db))
	// 再次迁移不会重复写入
	require.NoError(t, Migrate(db))

	count := func(m interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(scoring.MaxLevel), count(&model.Level{}))
	assert.Equal(t, int64(scoring.MaxLevel), count(&model.District{}))
	assert.Equal(t, int64(scoring.MaxLevel), count(&model.MilestoneChallenge{}))
	assert.Equal(t, int64(len(DefaultQuests(time.Now()))), count(&model.Quest{}))
	assert.Equal(t, int64(6), count(&model.Exercise{}))

	var milestones []model.MilestoneChallenge
	require.NoError(t, db.Find(&milestones).Error)
	for _, m := range milestones {
		var total float64
		for _, w := range m.Rubric {
			total += w
		}
		assert.InDelta(t, 1.0, total, 1e-9, m.Name)
		assert.Equal(t, scoring.DefaultPassThreshold, m.PassThreshold)
	}
}

func TestDefaultCatalogAnswerKeys(t *testing.T) {
	for _, lv := range defaultCatalog() {
		for _, ls := range lv.lessons {
			for _, ex := range ls.exercises {
				assert.True(t, ex.Kind.Valid(), ex.Prompt)
				if !ex.Kind.Remote() {
					assert.NotEmpty(t, ex.AnswerKey(), ex.Prompt)
				}
			}
		}
	}
}

func TestDefaultQuestsExpireAfterNow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, q := range DefaultQuests(now) {
		require.NotNil(t, q.ExpiresAt, q.Name)
		assert.True(t, q.ExpiresAt.After(now), q.Name)
		assert.True(t, q.IsActive, q.Name)
	}
}
