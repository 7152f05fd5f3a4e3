package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 工作簿中的工作表名
const (
	SheetLevels    = "Levels"
	SheetUnits     = "Units"
	SheetLessons   = "Lessons"
	SheetExercises = "Exercises"
	SheetQuests    = "Quests"
)

// listSeparator 单元格内多个取值的分隔符
const listSeparator = "|"

// RowError 某一行的导入错误，Row 为表格中的行号（从 1 开始）
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport 导入结果
type ImportReport struct {
	Levels    int        `json:"levels"`
	Units     int        `json:"units"`
	Lessons   int        `json:"lessons"`
	Exercises int        `json:"exercises"`
	Quests    int        `json:"quests"`
	Errors    []RowError `json:"errors"`
}

func (r *ImportReport) addError(sheet string, row int, err error) {
	r.Errors = append(r.Errors, RowError{Sheet: sheet, Row: row, Message: err.Error()})
}

type ContentImportService struct {
	DB          *gorm.DB
	ContentRepo *repository.ContentRepository
	QuestRepo   *repository.QuestRepository
}

func NewContentImportService(db *gorm.DB, contentRepo *repository.ContentRepository, questRepo *repository.QuestRepository) *ContentImportService {
	return &ContentImportService{DB: db, ContentRepo: contentRepo, QuestRepo: questRepo}
}

// Import 读取 xlsx 工作簿并按自然键写入内容。解析失败的行跳过并记入报告
func (s *ContentImportService) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidWorkbook, err)
	}
	defer f.Close()

	report := &ImportReport{Errors: []RowError{}}
	wb, err := parseWorkbook(f, report)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.apply(tx, wb, report)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Content workbook imported",
		zap.Int("levels", report.Levels),
		zap.Int("units", report.Units),
		zap.Int("lessons", report.Lessons),
		zap.Int("exercises", report.Exercises),
		zap.Int("quests", report.Quests),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

type levelRow struct {
	row   int
	level model.Level
}

type unitRow struct {
	row         int
	levelNumber int
	unit        model.Unit
}

type lessonRow struct {
	row         int
	levelNumber int
	unitOrder   int
	lesson      model.Lesson
}

type exerciseRow struct {
	row         int
	levelNumber int
	unitOrder   int
	lessonOrder int
	exercise    model.Exercise
}

type questRow struct {
	row   int
	quest model.Quest
}

type contentWorkbook struct {
	levels    []levelRow
	units     []unitRow
	lessons   []lessonRow
	exercises []exerciseRow
	quests    []questRow
}

// sheetRow 按表头名读取单元格
type sheetRow struct {
	header map[string]int
	cells  []string
}

func (r sheetRow) str(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r sheetRow) required(col string) (string, error) {
	v := r.str(col)
	if v == "" {
		return "", fmt.Errorf("%s is required", col)
	}
	return v, nil
}

func (r sheetRow) number(col string, def int) (int, error) {
	v := r.str(col)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// 表格中的数字可能带小数位，如 "5.0"
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%s: %q is not an integer", col, v)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", col)
	}
	return n, nil
}

func (r sheetRow) requiredInt(col string) (int, error) {
	if r.str(col) == "" {
		return 0, fmt.Errorf("%s is required", col)
	}
	return r.number(col, 0)
}

func (r sheetRow) flag(col string, def bool) (bool, error) {
	v := strings.ToLower(r.str(col))
	switch v {
	case "":
		return def, nil
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("%s: %q is not a boolean", col, v)
}

func (r sheetRow) list(col string) model.StringList {
	v := r.str(col)
	if v == "" {
		return model.StringList{}
	}
	parts := strings.Split(v, listSeparator)
	out := make(model.StringList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r sheetRow) date(col string) (*time.Time, error) {
	v := r.str(col)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, util.TimeFormat, util.DateFormat} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is not a date", col, v)
}

// readSheet 返回表头索引和数据行；工作表不存在时 ok 为 false
func readSheet(f *excelize.File, name string) (map[string]int, [][]string, bool, error) {
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, nil, false, nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, nil, false, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return map[string]int{}, nil, true, nil
	}
	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			header[h] = i
		}
	}
	return header, rows[1:], true, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// eachRow 遍历非空数据行，fn 返回的错误记入报告
func eachRow(f *excelize.File, sheet string, report *ImportReport, fn func(row int, r sheetRow) error) (bool, error) {
	header, rows, ok, err := readSheet(f, sheet)
	if err != nil || !ok {
		return ok, err
	}
	for i, cells := range rows {
		if blank(cells) {
			continue
		}
		rowNum := i + 2
		if err := fn(rowNum, sheetRow{header: header, cells: cells}); err != nil {
			report.addError(sheet, rowNum, err)
		}
	}
	return true, nil
}

func parseWorkbook(f *excelize.File, report *ImportReport) (*contentWorkbook, error) {
	wb := &contentWorkbook{}
	found := 0

	ok, err := eachRow(f, SheetLevels, report, func(row int, r sheetRow) error {
		lv, err := parseLevel(r)
		if err != nil {
			return err
		}
		wb.levels = append(wb.levels, levelRow{row: row, level: *lv})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		found++
	}

	ok, err = eachRow(f, SheetUnits, report, func(row int, r sheetRow) error {
		levelNumber, err := r.requiredInt("level_number")
		if err != nil {
			return err
		}
		order, err := r.requiredInt("order")
		if err != nil {
			return err
		}
		name, err := r.required("name")
		if err != nil {
			return err
		}
		duration, err := r.number("duration_minutes", 0)
		if err != nil {
			return err
		}
		wb.units = append(wb.units, unitRow{row: row, levelNumber: levelNumber, unit: model.Unit{
			Order:           order,
			Name:            name,
			Description:     r.str("description"),
			DurationMinutes: duration,
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		found++
	}

	ok, err = eachRow(f, SheetLessons, report, func(row int, r sheetRow) error {
		lr, err := parseLesson(r)
		if err != nil {
			return err
		}
		lr.row = row
		wb.lessons = append(wb.lessons, *lr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		found++
	}

	ok, err = eachRow(f, SheetExercises, report, func(row int, r sheetRow) error {
		er, err := parseExercise(r)
		if err != nil {
			return err
		}
		er.row = row
		wb.exercises = append(wb.exercises, *er)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		found++
	}

	ok, err = eachRow(f, SheetQuests, report, func(row int, r sheetRow) error {
		q, err := parseQuest(r)
		if err != nil {
			return err
		}
		wb.quests = append(wb.quests, questRow{row: row, quest: *q})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		found++
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: none of the sheets %s, %s, %s, %s, %s found", util.ErrInvalidWorkbook,
			SheetLevels, SheetUnits, SheetLessons, SheetExercises, SheetQuests)
	}
	return wb, nil
}

func parseLevel(r sheetRow) (*model.Level, error) {
	number, err := r.requiredInt("number")
	if err != nil {
		return nil, err
	}
	if number < 1 || number > scoring.MaxLevel {
		return nil, fmt.Errorf("number must be between 1 and %d", scoring.MaxLevel)
	}
	name, err := r.required("name")
	if err != nil {
		return nil, err
	}
	lv := &model.Level{Number: number, Name: name, Description: r.str("description")}
	ints := []struct {
		col string
		dst *int
		def int
	}{
		{"duration_minutes", &lv.DurationMinutes, 0},
		{"xp_required", &lv.XPRequired, 0},
		{"milestone_duration_seconds", &lv.MilestoneDurationSeconds, 60},
		{"coins_reward", &lv.CoinsReward, 0},
		{"gems_reward", &lv.GemsReward, 0},
	}
	for _, c := range ints {
		if *c.dst, err = r.number(c.col, c.def); err != nil {
			return nil, err
		}
	}
	return lv, nil
}

func parseLesson(r sheetRow) (*lessonRow, error) {
	lr := &lessonRow{}
	var err error
	if lr.levelNumber, err = r.requiredInt("level_number"); err != nil {
		return nil, err
	}
	if lr.unitOrder, err = r.requiredInt("unit_order"); err != nil {
		return nil, err
	}
	if lr.lesson.Order, err = r.requiredInt("order"); err != nil {
		return nil, err
	}
	if lr.lesson.Name, err = r.required("name"); err != nil {
		return nil, err
	}
	if lr.lesson.DurationMinutes, err = r.number("duration_minutes", 5); err != nil {
		return nil, err
	}
	if lr.lesson.XPReward, err = r.number("xp_reward", 10); err != nil {
		return nil, err
	}
	lr.lesson.Description = r.str("description")
	lr.lesson.TipSheet = r.str("tip_sheet")
	lr.lesson.LearningObjectives = r.str("learning_objectives")
	return lr, nil
}

func parseExercise(r sheetRow) (*exerciseRow, error) {
	er := &exerciseRow{}
	var err error
	if er.levelNumber, err = r.requiredInt("level_number"); err != nil {
		return nil, err
	}
	if er.unitOrder, err = r.requiredInt("unit_order"); err != nil {
		return nil, err
	}
	if er.lessonOrder, err = r.requiredInt("lesson_order"); err != nil {
		return nil, err
	}
	ex := &er.exercise
	if ex.Order, err = r.requiredInt("order"); err != nil {
		return nil, err
	}
	kind := scoring.Kind(strings.ToLower(r.str("type")))
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", util.ErrUnknownExerciseType, r.str("type"))
	}
	ex.Kind = kind
	if ex.Prompt, err = r.required("prompt"); err != nil {
		return nil, err
	}
	if ex.XPReward, err = r.number("xp_reward", 5); err != nil {
		return nil, err
	}
	if ex.MaxAttempts, err = r.number("max_attempts", 3); err != nil {
		return nil, err
	}
	ex.Options = r.list("options")
	ex.CorrectAnswers = r.list("correct_answers")
	ex.ReferenceText = r.str("reference_text")
	ex.AudioURL = r.str("audio_url")
	ex.FeedbackCorrect = r.str("feedback_correct")
	ex.FeedbackIncorrect = r.str("feedback_incorrect")

	if !kind.Remote() && len(ex.AnswerKey()) == 0 {
		return nil, errors.New("correct_answers or reference_text is required")
	}
	return er, nil
}

func parseQuest(r sheetRow) (*model.Quest, error) {
	name, err := r.required("name")
	if err != nil {
		return nil, err
	}
	q := &model.Quest{Name: name, Description: r.str("description")}
	switch t := scoring.QuestType(strings.ToLower(r.str("quest_type"))); t {
	case scoring.QuestDaily, scoring.QuestWeekly, scoring.QuestSpecial:
		q.QuestType = t
	default:
		return nil, fmt.Errorf("quest_type: %q is not daily, weekly or special", r.str("quest_type"))
	}
	ints := []struct {
		col string
		dst *int
	}{
		{"required_lessons", &q.RequiredLessons},
		{"required_xp", &q.RequiredXP},
		{"required_streak", &q.RequiredStreak},
		{"xp_reward", &q.XPReward},
		{"coins_reward", &q.CoinsReward},
		{"gems_reward", &q.GemsReward},
	}
	for _, c := range ints {
		if *c.dst, err = r.number(c.col, 0); err != nil {
			return nil, err
		}
	}
	if q.IsActive, err = r.flag("is_active", true); err != nil {
		return nil, err
	}
	if q.ExpiresAt, err = r.date("expires_at"); err != nil {
		return nil, err
	}
	return q, nil
}

// apply 按层级顺序写入，父级不存在的行记为错误
func (s *ContentImportService) apply(tx *gorm.DB, wb *contentWorkbook, report *ImportReport) error {
	content := s.ContentRepo.WithTx(tx)
	quests := s.QuestRepo.WithTx(tx)

	for i := range wb.levels {
		lr := &wb.levels[i]
		if err := content.UpsertLevel(&lr.level); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetLevels, lr.row, err)
		}
		report.Levels++
	}

	levelID := func(number int) (uint, error) {
		lv, err := content.FindLevelByNumber(number)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fmt.Errorf("level %d does not exist", number)
			}
			return 0, err
		}
		return lv.ID, nil
	}
	unitID := func(levelNumber, order int) (uint, error) {
		lid, err := levelID(levelNumber)
		if err != nil {
			return 0, err
		}
		u, err := content.FindUnit(lid, order)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fmt.Errorf("unit %d of level %d does not exist", order, levelNumber)
			}
			return 0, err
		}
		return u.ID, nil
	}
	lessonID := func(levelNumber, unitOrder, order int) (uint, error) {
		uid, err := unitID(levelNumber, unitOrder)
		if err != nil {
			return 0, err
		}
		l, err := content.FindLesson(uid, order)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fmt.Errorf("lesson %d of unit %d, level %d does not exist", order, unitOrder, levelNumber)
			}
			return 0, err
		}
		return l.ID, nil
	}

	for i := range wb.units {
		ur := &wb.units[i]
		lid, err := levelID(ur.levelNumber)
		if err != nil {
			report.addError(SheetUnits, ur.row, err)
			continue
		}
		ur.unit.LevelID = lid
		if err := content.UpsertUnit(&ur.unit); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetUnits, ur.row, err)
		}
		report.Units++
	}

	for i := range wb.lessons {
		lr := &wb.lessons[i]
		uid, err := unitID(lr.levelNumber, lr.unitOrder)
		if err != nil {
			report.addError(SheetLessons, lr.row, err)
			continue
		}
		lr.lesson.UnitID = uid
		if err := content.UpsertLesson(&lr.lesson); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetLessons, lr.row, err)
		}
		report.Lessons++
	}

	for i := range wb.exercises {
		er := &wb.exercises[i]
		lid, err := lessonID(er.levelNumber, er.unitOrder, er.lessonOrder)
		if err != nil {
			report.addError(SheetExercises, er.row, err)
			continue
		}
		er.exercise.LessonID = lid
		if err := content.UpsertExercise(&er.exercise); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetExercises, er.row, err)
		}
		report.Exercises++
	}

	for i := range wb.quests {
		qr := &wb.quests[i]
		if err := quests.UpsertQuest(&qr.quest); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetQuests, qr.row, err)
		}
		report.Quests++
	}
	return nil
}
