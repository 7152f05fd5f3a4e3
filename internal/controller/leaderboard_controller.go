package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
	Settings           *service.Settings
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService, settings *service.Settings) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService, Settings: settings}
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Description 总经验前 N 名及当前用户名次
// @Tags 排行榜
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "数量，默认 50，最大 200"
// @Success 200 {object} util.Response{data=service.Leaderboard}
// @Router /api/leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	def := c.Settings.Current().LeaderboardSize
	limit := util.ParseIntBounded(ctx.Query("limit"), def, 1, 200)
	board, err := c.LeaderboardService.Top(ctx.Request.Context(), userID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, board)
}
