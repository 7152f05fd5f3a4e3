package database

import (
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/scoring"
	applog "speakopoly_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type levelSeed struct {
	level     model.Level
	district  model.District
	milestone model.MilestoneChallenge
	unit      model.Unit
	lessons   []lessonSeed
}

type lessonSeed struct {
	lesson    model.Lesson
	exercises []model.Exercise
}

// defaultCatalog 六个关卡的默认课程内容
func defaultCatalog() []levelSeed {
	return []levelSeed{
		{
			level: model.Level{Number: 1, Name: "Awareness & Foundations", Description: "Understand high-stakes moments, audience psychology, style, and clarity.",
				DurationMinutes: 75, XPRequired: 0, MilestoneDurationSeconds: 30, CoinsReward: 50, GemsReward: 5},
			district: model.District{Name: "Foundations District", Description: "Meet your coaches and learn the Golden Principle.",
				CoachName: "Philosopher", CoachDescription: "Guides debate and awareness.", TicketCost: 1},
			milestone: model.MilestoneChallenge{Name: "30-Second Introduction", Description: "Record a clear, confident 30-second intro.", DurationSeconds: 30,
				Rubric: model.ScoreMap{"clarity": 0.3, "structure": 0.3, "presence": 0.2, "influence": 0.2}, XPReward: 50, CoinsReward: 20},
			unit: model.Unit{Order: 1, Name: "Awareness & Foundations", Description: "What raises the stakes; how to prepare and stay clear.", DurationMinutes: 30},
			lessons: []lessonSeed{
				{
					lesson: model.Lesson{Order: 1, Name: "Why High-Stakes Communication Is Different", Description: "Time pressure, audience power and emotional charge.",
						DurationMinutes: 10, XPReward: 20, TipSheet: "Outcome over words. Prepare message, mind and moment. Keep one clear ask."},
					exercises: []model.Exercise{
						{Order: 1, Kind: scoring.KindSelect, Prompt: "Which best states the Golden Principle?",
							Options:        model.StringList{"Say more to show expertise.", "Focus on the audience outcome you create."},
							CorrectAnswers: model.StringList{"1"}, FeedbackCorrect: "Yes: measure success by the audience shift.", FeedbackIncorrect: "Hint: it is not about eloquence."},
						{Order: 2, Kind: scoring.KindRewrite, Prompt: `Rewrite: "I will demonstrate my expertise thoroughly in 10 minutes."`,
							ReferenceText: "I will help you decide quickly with one clear recommendation.", FeedbackCorrect: "Outcome-focused!", FeedbackIncorrect: "Aim for audience outcome."},
						{Order: 3, Kind: scoring.KindListen, Prompt: "Listen and choose the phrase that aligns with outcome focus.",
							Options:        model.StringList{"Here are all the features...", "Here is what changes for you."},
							CorrectAnswers: model.StringList{"1"}, FeedbackCorrect: "That frames the outcome.", FeedbackIncorrect: "Try the one that signals impact."},
					},
				},
				{
					lesson: model.Lesson{Order: 2, Name: "Clarity vs Jargon", Description: "Replace buzzwords with everyday language.",
						DurationMinutes: 8, XPReward: 15, TipSheet: "Prefer short words; define terms; one idea per sentence."},
					exercises: []model.Exercise{
						{Order: 1, Kind: scoring.KindMatch, Prompt: "Match jargon to plain English.",
							Options:        model.StringList{"Leverage", "Facilitate", "Ideate"},
							CorrectAnswers: model.StringList{"Use", "Help", "Think of ideas"}, FeedbackCorrect: "Nice!", FeedbackIncorrect: "Aim for common alternatives."},
						{Order: 2, Kind: scoring.KindScenario, Prompt: "Board vs team tone?",
							Options:        model.StringList{"Same script for both to be fair.", "Adapt tone and detail to each audience."},
							CorrectAnswers: model.StringList{"1"}, FeedbackCorrect: "Audience fit over uniformity.", FeedbackIncorrect: "Different rooms, different expectations."},
						{Order: 3, Kind: scoring.KindSpeak, Prompt: `Say: "I will keep this simple and valuable for you."`,
							ReferenceText: "I will keep this simple and valuable for you.", FeedbackCorrect: "Grounded and clear!", FeedbackIncorrect: "Slow down; emphasize value."},
					},
				},
			},
		},
		{
			level: model.Level{Number: 2, Name: "Message Crafting", Description: "Build a through-line, a hook, a story arc and a clear close.",
				DurationMinutes: 60, XPRequired: 100, MilestoneDurationSeconds: 90, CoinsReward: 60, GemsReward: 6},
			district: model.District{Name: "Message District", Description: "Craft compelling through-lines; earn Story Tokens.",
				CoachName: "Storyteller", CoachDescription: "Guides narrative rhythm.", XPRequired: 100, TicketCost: 1},
			milestone: model.MilestoneChallenge{Name: "90-Second Story Pitch", Description: "Deliver a structured 90-second story with hook and ask.", DurationSeconds: 90,
				Rubric: model.ScoreMap{"hook": 0.3, "structure": 0.3, "clarity": 0.25, "purpose": 0.15}, XPReward: 70, CoinsReward: 30},
			unit: model.Unit{Order: 1, Name: "Message Architecture", Description: "Through-line, hook, story arc, close.", DurationMinutes: 45},
			lessons: []lessonSeed{
				{lesson: model.Lesson{Order: 1, Name: "The Through-Line", DurationMinutes: 10, XPReward: 20, TipSheet: "One sentence your audience can repeat."}},
			},
		},
		{
			level: model.Level{Number: 3, Name: "Delivery & Presence", Description: "Voice, stance and timing.",
				DurationMinutes: 60, XPRequired: 220, MilestoneDurationSeconds: 120, CoinsReward: 70, GemsReward: 7},
			district: model.District{Name: "Delivery District", Description: "Master vocal variety, stance, and timing.",
				CoachName: "Parliament Speaker", CoachDescription: "Keeps pace and composure.", XPRequired: 220, TicketCost: 2},
			milestone: model.MilestoneChallenge{Name: "2-Minute Persuasion", Description: "Deliver a 2-minute persuasive talk.", DurationSeconds: 120,
				Rubric: model.ScoreMap{"tone": 0.3, "posture": 0.25, "timing": 0.2, "connection": 0.25}, XPReward: 80, CoinsReward: 35},
			unit: model.Unit{Order: 1, Name: "Presence Mechanics", Description: "Voice as instrument; stance; timing.", DurationMinutes: 45},
			lessons: []lessonSeed{
				{lesson: model.Lesson{Order: 1, Name: "Voice: Pitch, Pace, Pause, Power", DurationMinutes: 12, XPReward: 20, TipSheet: "Pause before the point."}},
			},
		},
		{
			level: model.Level{Number: 4, Name: "Strategic Influence", Description: "Read the room and choose ethical cues.",
				DurationMinutes: 60, XPRequired: 320, MilestoneDurationSeconds: 120, CoinsReward: 80, GemsReward: 8},
			district: model.District{Name: "Influence District", Description: "Read the room; choose ethical cues.",
				CoachName: "CEO Mentor", CoachDescription: "Frames decisions.", XPRequired: 320, TicketCost: 2},
			milestone: model.MilestoneChallenge{Name: "Reframe the Proposal", Description: "Reframe a controversial proposal convincingly.", DurationSeconds: 120,
				Rubric: model.ScoreMap{"empathy": 0.3, "logic": 0.3, "ethics": 0.2, "ask": 0.2}, XPReward: 90, CoinsReward: 40},
			unit: model.Unit{Order: 1, Name: "Influence Toolkit", Description: "Psychology and framing.", DurationMinutes: 45},
			lessons: []lessonSeed{
				{lesson: model.Lesson{Order: 1, Name: "Ethos, Pathos, Logos", DurationMinutes: 10, XPReward: 20, TipSheet: "Quick triad check before you speak."}},
			},
		},
		{
			level: model.Level{Number: 5, Name: "Negotiation & Impact", Description: "Balance assertiveness and empathy.",
				DurationMinutes: 60, XPRequired: 420, MilestoneDurationSeconds: 300, CoinsReward: 90, GemsReward: 9},
			district: model.District{Name: "Negotiation District", Description: "Balance assertiveness and empathy.",
				CoachName: "Statesman", CoachDescription: "Diplomatic persuasion.", XPRequired: 420, TicketCost: 3},
			milestone: model.MilestoneChallenge{Name: "5-Min Negotiation", Description: "Conduct a principled 5-minute negotiation.", DurationSeconds: 300,
				Rubric: model.ScoreMap{"interests": 0.3, "listening": 0.25, "options": 0.25, "commitment": 0.2}, XPReward: 100, CoinsReward: 45},
			unit: model.Unit{Order: 1, Name: "Principled Negotiation", Description: "Interests over positions.", DurationMinutes: 45},
			lessons: []lessonSeed{
				{lesson: model.Lesson{Order: 1, Name: "Interests vs Positions", DurationMinutes: 10, XPReward: 20, TipSheet: "Ask why; trade on interests."}},
			},
		},
		{
			level: model.Level{Number: 6, Name: "Integration & Mastery", Description: "Unite all skills in one performance.",
				DurationMinutes: 75, XPRequired: 520, MilestoneDurationSeconds: 240, CoinsReward: 100, GemsReward: 10},
			district: model.District{Name: "Mastery District", Description: "Unite all skills in one performance.",
				CoachName: "TED Coach", CoachDescription: "Clarity, story and presence.", XPRequired: 520, TicketCost: 3},
			milestone: model.MilestoneChallenge{Name: "Signature Talk", Description: "Deliver an integrated, inspiring talk.", DurationSeconds: 240,
				Rubric: model.ScoreMap{"purpose": 0.25, "structure": 0.25, "delivery": 0.25, "influence": 0.25}, XPReward: 120, CoinsReward: 50},
			unit: model.Unit{Order: 1, Name: "Signature Synthesis", Description: "Design and deliver your signature talk.", DurationMinutes: 50},
			lessons: []lessonSeed{
				{lesson: model.Lesson{Order: 1, Name: "Outcome-Driven Communication", DurationMinutes: 12, XPReward: 25, TipSheet: "Design backwards from audience shift."}},
			},
		},
	}
}

// DefaultQuests 默认任务，过期时间相对 now 计算
func DefaultQuests(now time.Time) []model.Quest {
	day := now.Add(24 * time.Hour)
	week := now.Add(7 * 24 * time.Hour)
	month := now.Add(30 * 24 * time.Hour)
	return []model.Quest{
		{Name: "Morning Warm-up", Description: "Complete one lesson today.", QuestType: scoring.QuestDaily,
			RequiredLessons: 1, XPReward: 25, CoinsReward: 10, IsActive: true, ExpiresAt: &day},
		{Name: "Daily Streak", Description: "Keep your streak alive today.", QuestType: scoring.QuestDaily,
			RequiredStreak: 1, XPReward: 30, CoinsReward: 15, GemsReward: 1, IsActive: true, ExpiresAt: &day},
		{Name: "Week Warrior", Description: "Complete 7 lessons this week and earn big rewards!", QuestType: scoring.QuestWeekly,
			RequiredLessons: 7, XPReward: 200, CoinsReward: 100, GemsReward: 5, IsActive: true, ExpiresAt: &week},
		{Name: "Streak Master", Description: "Maintain a 7-day streak to unlock bonus rewards!", QuestType: scoring.QuestWeekly,
			RequiredStreak: 7, XPReward: 250, CoinsReward: 125, GemsReward: 7, IsActive: true, ExpiresAt: &week},
		{Name: "XP Collector", Description: "Earn 500 XP this week.", QuestType: scoring.QuestWeekly,
			RequiredXP: 500, XPReward: 300, CoinsReward: 150, GemsReward: 10, IsActive: true, ExpiresAt: &week},
		{Name: "Perfect Practice", Description: "Complete 5 lessons this month.", QuestType: scoring.QuestSpecial,
			RequiredLessons: 5, XPReward: 150, CoinsReward: 75, GemsReward: 5, IsActive: true, ExpiresAt: &month},
	}
}

// SeedDefaults 表为空时写入默认数据
func SeedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Level{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := db.Transaction(seedCatalog); err != nil {
			return err
		}
		applog.Log.Info("Default catalog seeded")
	}

	if err := db.Model(&model.Quest{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		quests := DefaultQuests(time.Now())
		if err := db.Create(&quests).Error; err != nil {
			return err
		}
		applog.Log.Info("Default quests seeded", zap.Int("count", len(quests)))
	}
	return nil
}

func seedCatalog(tx *gorm.DB) error {
	for _, seed := range defaultCatalog() {
		level := seed.level
		if err := tx.Create(&level).Error; err != nil {
			return err
		}

		district := seed.district
		district.LevelID = level.ID
		if err := tx.Create(&district).Error; err != nil {
			return err
		}

		milestone := seed.milestone
		milestone.LevelID = level.ID
		milestone.PassThreshold = scoring.DefaultPassThreshold
		if err := tx.Create(&milestone).Error; err != nil {
			return err
		}

		unit := seed.unit
		unit.LevelID = level.ID
		if err := tx.Create(&unit).Error; err != nil {
			return err
		}

		for _, ls := range seed.lessons {
			lesson := ls.lesson
			lesson.UnitID = unit.ID
			if err := tx.Create(&lesson).Error; err != nil {
				return err
			}
			for _, ex := range ls.exercises {
				ex.LessonID = lesson.ID
				if err := tx.Create(&ex).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}
