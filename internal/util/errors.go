package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrLevelNotFound       = errors.New("level not found")
	ErrLevelLocked         = errors.New("level is locked")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrExerciseNotFound    = errors.New("exercise not found")
	ErrUnknownExerciseType = errors.New("unknown exercise type")
	ErrMaxAttemptsReached  = errors.New("maximum attempts reached")
	ErrAudioRequired       = errors.New("audio recording is required")
	ErrMilestoneNotFound   = errors.New("milestone not found")
	ErrRubricRequired      = errors.New("rubric scores or audio recording required")
	ErrClientScoresDenied  = errors.New("rubric scores must come from the milestone grader")
	ErrQuestNotFound       = errors.New("quest not found")
	ErrQuestExpired        = errors.New("quest expired")
	ErrQuestNotStarted     = errors.New("quest not started")
	ErrQuestIncomplete     = errors.New("quest requirements not met")
	ErrDistrictNotFound    = errors.New("district not found")
	ErrDistrictLocked      = errors.New("district is locked")
	ErrNotEnoughTickets    = errors.New("not enough tickets")
	ErrInvalidWorkbook     = errors.New("invalid content workbook")
)
