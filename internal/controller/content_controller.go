package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService  *service.ContentService
	LessonService   *service.LessonService
	ExerciseService *service.ExerciseService
}

func NewContentController(contentService *service.ContentService, lessonService *service.LessonService, exerciseService *service.ExerciseService) *ContentController {
	return &ContentController{
		ContentService:  contentService,
		LessonService:   lessonService,
		ExerciseService: exerciseService,
	}
}

// ListLevels godoc
// @Summary 关卡列表
// @Description 六个关卡及当前用户的解锁状态
// @Tags 课程
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Level}
// @Router /api/levels [get]
func (c *ContentController) ListLevels(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	levels, err := c.ContentService.ListLevels(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// GetLevel godoc
// @Summary 关卡详情
// @Tags 课程
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "关卡ID"
// @Success 200 {object} util.Response{data=model.Level}
// @Failure 404 {object} util.Response "关卡不存在"
// @Router /api/levels/{id} [get]
func (c *ContentController) GetLevel(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	level, err := c.ContentService.GetLevel(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// GetLesson godoc
// @Summary 课程详情
// @Description 课程内容与练习（不含答案）
// @Tags 课程
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 403 {object} util.Response "关卡未解锁"
// @Router /api/lessons/{id} [get]
func (c *ContentController) GetLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	lesson, err := c.ContentService.GetLesson(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// CompleteLesson godoc
// @Summary 完成课程
// @Description 首次完成发放课程经验；关卡内课程全部完成后解锁下一关
// @Tags 课程
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CompleteLessonResult}
// @Router /api/lessons/{id}/complete [post]
func (c *ContentController) CompleteLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.LessonService.Complete(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetExercise godoc
// @Summary 练习详情
// @Description 练习题（不含答案）、历史作答与下一次作答序号
// @Tags 练习
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "练习ID"
// @Success 200 {object} util.Response{data=service.ExerciseDetail}
// @Router /api/exercises/{id} [get]
func (c *ContentController) GetExercise(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	detail, err := c.ExerciseService.Detail(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// SubmitExercise godoc
// @Summary 提交练习
// @Description 评分并记录作答；正确时更新连续学习并发放经验和金币
// @Tags 练习
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "练习ID"
// @Param body body service.SubmitExerciseRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmitExerciseResult}
// @Failure 409 {object} util.Response "作答次数已用完"
// @Failure 502 {object} util.Response "AI 评分服务错误"
// @Failure 504 {object} util.Response "AI 评分服务超时"
// @Router /api/exercises/{id}/submit [post]
func (c *ContentController) SubmitExercise(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubmitExerciseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.ExerciseService.Submit(ctx.Request.Context(), userID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
