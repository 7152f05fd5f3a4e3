package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestController struct {
	QuestService *service.QuestService
}

func NewQuestController(questService *service.QuestService) *QuestController {
	return &QuestController{QuestService: questService}
}

// ListQuests godoc
// @Summary 任务列表
// @Description 当前有效的任务及进度
// @Tags 任务
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]service.QuestView}
// @Router /api/quests [get]
func (c *QuestController) ListQuests(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quests, err := c.QuestService.List(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quests)
}

// StartQuest godoc
// @Summary 领取任务
// @Tags 任务
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "任务ID"
// @Success 200 {object} util.Response{data=model.UserQuest}
// @Failure 410 {object} util.Response "任务已过期"
// @Router /api/quests/{id}/start [post]
func (c *QuestController) StartQuest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	uq, err := c.QuestService.Start(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, uq)
}

// CompleteQuest godoc
// @Summary 完成任务
// @Description 校验任务要求并发放奖励
// @Tags 任务
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "任务ID"
// @Success 200 {object} util.Response{data=service.QuestReward}
// @Failure 400 {object} util.Response "未领取或未达成"
// @Router /api/quests/{id}/complete [post]
func (c *QuestController) CompleteQuest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	reward, err := c.QuestService.Complete(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, reward)
}
