package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CoachController struct {
	CoachService *service.CoachService
}

func NewCoachController(coachService *service.CoachService) *CoachController {
	return &CoachController{CoachService: coachService}
}

type CoachRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// Ask godoc
// @Summary AI 教练
// @Description 向 AI 教练发送消息，附带当前学习进度
// @Tags AI
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body CoachRequest true "消息"
// @Success 200 {object} util.Response{data=object}
// @Failure 502 {object} util.Response "AI 服务错误"
// @Failure 504 {object} util.Response "AI 服务超时"
// @Router /api/coach [post]
func (c *CoachController) Ask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CoachRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Message is required")
		return
	}
	reply, err := c.CoachService.Ask(ctx.Request.Context(), userID, req.Message)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"response": reply})
}
