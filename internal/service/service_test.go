package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/pkg/events"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv 内存 SQLite 上的两关课程：第一关两节课，第二关一节课
type testEnv struct {
	db       *gorm.DB
	settings *Settings

	users      *repository.UserRepository
	profiles   *repository.ProfileRepository
	content    *repository.ContentRepository
	exercises  *repository.ExerciseRepository
	milestones *repository.MilestoneRepository
	quests     *repository.QuestRepository
	districts  *repository.DistrictRepository
	rewards    *repository.RewardRepository
	progress   *repository.ProgressRepository

	level1, level2       *model.Level
	lesson1, lesson2     *model.Lesson
	lesson3              *model.Lesson
	selectEx, matchEx    *model.Exercise
	speakEx, lockedEx    *model.Exercise
	milestone1           *model.MilestoneChallenge
	district1, district2 *model.District
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// SQLite 按字符串比较时间，统一使用 UTC
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))

	env := &testEnv{
		db:         db,
		settings:   NewSettings(config.ScoringConfig{XPClampMin: 5, XPClampMax: 10, MilestonePassThreshold: 0.7, MaxLevel: 6, Timezone: "UTC"}),
		users:      repository.NewUserRepository(db),
		profiles:   repository.NewProfileRepository(db),
		content:    repository.NewContentRepository(db),
		exercises:  repository.NewExerciseRepository(db),
		milestones: repository.NewMilestoneRepository(db),
		quests:     repository.NewQuestRepository(db),
		districts:  repository.NewDistrictRepository(db),
		rewards:    repository.NewRewardRepository(db),
		progress:   repository.NewProgressRepository(db),
	}
	env.seed(t)
	return env
}

func (e *testEnv) create(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, e.db.Create(v).Error)
}

func (e *testEnv) seed(t *testing.T) {
	e.level1 = &model.Level{Number: 1, Name: "Foundations"}
	e.level2 = &model.Level{Number: 2, Name: "Structure"}
	e.create(t, e.level1)
	e.create(t, e.level2)

	unit1 := &model.Unit{LevelID: e.level1.ID, Order: 1, Name: "Awareness"}
	unit2 := &model.Unit{LevelID: e.level2.ID, Order: 1, Name: "Frameworks"}
	e.create(t, unit1)
	e.create(t, unit2)

	e.lesson1 = &model.Lesson{UnitID: unit1.ID, Order: 1, Name: "Golden Principle", XPReward: 20}
	e.lesson2 = &model.Lesson{UnitID: unit1.ID, Order: 2, Name: "Clarity vs Jargon", XPReward: 15}
	e.lesson3 = &model.Lesson{UnitID: unit2.ID, Order: 1, Name: "PREP", XPReward: 25}
	e.create(t, e.lesson1)
	e.create(t, e.lesson2)
	e.create(t, e.lesson3)

	e.selectEx = &model.Exercise{LessonID: e.lesson1.ID, Order: 1, Kind: scoring.KindSelect, Prompt: "Pick the outcome",
		Options: model.StringList{"a", "b"}, CorrectAnswers: model.StringList{"1"}, XPReward: 10, MaxAttempts: 2,
		FeedbackCorrect: "Yes", FeedbackIncorrect: "Not quite"}
	e.matchEx = &model.Exercise{LessonID: e.lesson1.ID, Order: 2, Kind: scoring.KindMatch, Prompt: "Match",
		CorrectAnswers: model.StringList{"Use", "Help", "Think"}, XPReward: 50, MaxAttempts: 3}
	e.speakEx = &model.Exercise{LessonID: e.lesson2.ID, Order: 1, Kind: scoring.KindSpeak, Prompt: "Say it",
		ReferenceText: "I recommend we launch", XPReward: 8, MaxAttempts: 3}
	e.lockedEx = &model.Exercise{LessonID: e.lesson3.ID, Order: 1, Kind: scoring.KindSelect, Prompt: "Locked",
		CorrectAnswers: model.StringList{"0"}, XPReward: 5, MaxAttempts: 3}
	for _, ex := range []*model.Exercise{e.selectEx, e.matchEx, e.speakEx, e.lockedEx} {
		e.create(t, ex)
	}

	e.milestone1 = &model.MilestoneChallenge{LevelID: e.level1.ID, Name: "30-Second Intro",
		Rubric: model.ScoreMap(scoring.DefaultRubricWeights), PassThreshold: 0.7, XPReward: 50, CoinsReward: 20}
	e.create(t, e.milestone1)

	e.district1 = &model.District{LevelID: e.level1.ID, Name: "Foundations District", TicketCost: 1}
	e.district2 = &model.District{LevelID: e.level2.ID, Name: "Structure District", TicketCost: 2, XPRequired: 100}
	e.create(t, e.district1)
	e.create(t, e.district2)
}

func (e *testEnv) newUser(t *testing.T, name string) uint {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Password: "x", Role: model.Learner}
	require.NoError(t, e.users.CreateWithProfile(u))
	return u.ID
}

func (e *testEnv) profile(t *testing.T, userID uint) *model.Profile {
	t.Helper()
	p, err := e.profiles.FindByUserID(userID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) exerciseService(scorer AudioScorer) *ExerciseService {
	return NewExerciseService(e.db, e.content, e.exercises, e.profiles, scorer, nil, events.NopPublisher{}, e.settings)
}

func (e *testEnv) lessonService() *LessonService {
	return NewLessonService(e.db, e.content, e.progress, e.profiles, NewRewardService(e.rewards), nil, events.NopPublisher{}, e.settings)
}

func (e *testEnv) milestoneService(scorer MilestoneScorer, store RecordingStore) *MilestoneService {
	s := NewMilestoneService(e.db, e.content, e.milestones, e.profiles, NewRewardService(e.rewards), scorer, store, nil, events.NopPublisher{}, e.settings)
	s.Probe = nil
	return s
}

func (e *testEnv) questService() *QuestService {
	return NewQuestService(e.db, e.quests, e.profiles, nil, events.NopPublisher{}, e.settings)
}

// stubAudioScorer 返回固定分数或错误，并记录调用次数
type stubAudioScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubAudioScorer) ScoreAudio(context.Context, AudioScoreRequest) (float64, error) {
	s.calls++
	return s.score, s.err
}
