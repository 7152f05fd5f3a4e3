package controller

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MilestoneController struct {
	MilestoneService *service.MilestoneService
	// AllowClientScores 为真时学员也可直接提交 rubric_scores
	AllowClientScores bool
}

func NewMilestoneController(milestoneService *service.MilestoneService, allowClientScores bool) *MilestoneController {
	return &MilestoneController{MilestoneService: milestoneService, AllowClientScores: allowClientScores}
}

// trustsScores 管理员提交的分数始终可信
func (c *MilestoneController) trustsScores(ctx *gin.Context) bool {
	if c.AllowClientScores {
		return true
	}
	claims := util.GetUserFromContext(ctx)
	return claims != nil && claims.Role == model.Admin
}

// GetLevelMilestone godoc
// @Summary 关卡里程碑
// @Description 关卡末尾的录音挑战及历史提交
// @Tags 里程碑
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "关卡ID"
// @Success 200 {object} util.Response{data=service.MilestoneView}
// @Router /api/levels/{id}/milestone [get]
func (c *MilestoneController) GetLevelMilestone(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.MilestoneService.GetForLevel(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// MilestoneScoresRequest 直接提交各维度分数
type MilestoneScoresRequest struct {
	RubricScores map[string]float64 `json:"rubric_scores" binding:"required"`
	Duration     float64            `json:"duration"`
}

// SubmitMilestone godoc
// @Summary 提交里程碑
// @Description multipart 上传录音（字段 audio）由 AI 评分；rubric_scores 仅管理员可直接提交
// @Tags 里程碑
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "里程碑ID"
// @Param audio formData file false "录音文件"
// @Param duration formData number false "录音时长（秒）"
// @Param rubric_scores formData string false "JSON 格式的各维度分数"
// @Success 200 {object} util.Response{data=service.MilestoneResult}
// @Failure 400 {object} util.Response "缺少录音或分数"
// @Failure 403 {object} util.Response "无权直接提交分数"
// @Failure 502 {object} util.Response "AI 评分服务错误"
// @Failure 504 {object} util.Response "AI 评分服务超时"
// @Router /api/milestones/{id}/submit [post]
func (c *MilestoneController) SubmitMilestone(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var sub service.MilestoneSubmission
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var req MilestoneScoresRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		sub.RubricScores = req.RubricScores
		sub.DurationSeconds = req.Duration
	} else {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, util.MaxRecordingBytes+1<<20)
		if raw := ctx.PostForm("rubric_scores"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &sub.RubricScores); err != nil {
				util.BadRequest(ctx, "rubric_scores must be a JSON object of numbers")
				return
			}
		}
		if d, err := strconv.ParseFloat(ctx.PostForm("duration"), 64); err == nil && d > 0 {
			sub.DurationSeconds = d
		}

		file, header, err := ctx.Request.FormFile("audio")
		switch {
		case err == http.ErrMissingFile:
		case err != nil:
			util.BadRequest(ctx, "invalid audio upload")
			return
		default:
			defer file.Close()
			tmpPath, contentType, err := saveRecording(file, header)
			if err != nil {
				util.BadRequest(ctx, err.Error())
				return
			}
			defer os.Remove(tmpPath)
			sub.RecordingPath = tmpPath
			sub.Filename = header.Filename
			sub.ContentType = contentType
		}
	}

	sub.TrustedScores = len(sub.RubricScores) > 0 && c.trustsScores(ctx)
	result, err := c.MilestoneService.Submit(ctx.Request.Context(), userID, id, sub)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// saveRecording 校验录音并写入临时文件
func saveRecording(file multipart.File, header *multipart.FileHeader) (string, string, error) {
	if header.Size > util.MaxRecordingBytes {
		return "", "", errBadUpload("recording exceeds 20MB")
	}
	if !util.HasAllowedExtension(header.Filename, util.AllowedAudioExtensions) {
		return "", "", errBadUpload("unsupported audio format")
	}
	mimeType, _ := util.ValidateMimeType(file, []string{util.MimeAudio, util.MimeVideo, "application/ogg", util.MimeOctetStream})
	if !util.IsAudio(mimeType) && mimeType != util.MimeOctetStream {
		return "", "", errBadUpload("file is not an audio recording")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}

	tmp, err := os.CreateTemp("", "milestone-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return "", "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, io.LimitReader(file, util.MaxRecordingBytes)); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimeType
	}
	return tmp.Name(), contentType, nil
}

type errBadUpload string

func (e errBadUpload) Error() string { return string(e) }
