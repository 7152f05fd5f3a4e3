package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
	RewardService  *service.RewardService
}

func NewProfileController(profileService *service.ProfileService, rewardService *service.RewardService) *ProfileController {
	return &ProfileController{ProfileService: profileService, RewardService: rewardService}
}

// GetProfile godoc
// @Summary 获取学习档案
// @Tags 档案
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=model.Profile}
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	profile, err := c.ProfileService.Get(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// UpdateProfile godoc
// @Summary 更新学习档案
// @Description 更新每日目标、学习角色与引导状态
// @Tags 档案
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body service.UpdateProfileRequest true "可修改字段"
// @Success 200 {object} util.Response{data=model.Profile}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	profile, err := c.ProfileService.Update(userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// GetStreak godoc
// @Summary 连续学习状态
// @Description 当前与最长连续天数，以及最近 10 次作答
// @Tags 档案
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=service.StreakOverview}
// @Router /api/streak [get]
func (c *ProfileController) GetStreak(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	overview, err := c.ProfileService.Streak(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// ListRewards godoc
// @Summary 已获得的奖励
// @Tags 档案
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]model.UserReward}
// @Router /api/rewards [get]
func (c *ProfileController) ListRewards(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	rewards, err := c.RewardService.ListForUser(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}
