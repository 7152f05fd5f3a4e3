package controller

import (
	"net/http"

	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	ImportService      *service.ContentImportService
	LeaderboardService *service.LeaderboardService
	QuestService       *service.QuestService
}

func NewAdminController(importService *service.ContentImportService, leaderboardService *service.LeaderboardService, questService *service.QuestService) *AdminController {
	return &AdminController{
		ImportService:      importService,
		LeaderboardService: leaderboardService,
		QuestService:       questService,
	}
}

// ImportContent godoc
// @Summary 导入课程内容
// @Description 上传 xlsx 工作簿（Levels、Units、Lessons、Exercises、Quests），按自然键写入
// @Tags 管理
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx 工作簿"
// @Success 200 {object} util.Response{data=service.ImportReport}
// @Failure 400 {object} util.Response "工作簿格式错误"
// @Router /api/admin/content/import [post]
func (c *AdminController) ImportContent(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, util.MaxWorkbookBytes+1<<20)
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	defer file.Close()
	if !util.HasAllowedExtension(header.Filename, []string{".xlsx"}) {
		util.BadRequest(ctx, "only .xlsx workbooks are supported")
		return
	}
	if header.Size > util.MaxWorkbookBytes {
		util.BadRequest(ctx, "workbook exceeds 10MB")
		return
	}

	report, err := c.ImportService.Import(ctx.Request.Context(), file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// RebuildLeaderboard godoc
// @Summary 重建排行榜
// @Tags 管理
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/leaderboard/rebuild [post]
func (c *AdminController) RebuildLeaderboard(ctx *gin.Context) {
	n, err := c.LeaderboardService.Rebuild(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"members": n})
}

// ExpireQuests godoc
// @Summary 停用过期任务
// @Tags 管理
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/quests/expire [post]
func (c *AdminController) ExpireQuests(ctx *gin.Context) {
	n, err := c.QuestService.ExpireQuests(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deactivated": n})
}
