package controller

import (
	"errors"
	"net/http"

	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// errorStatus 业务错误到 HTTP 状态码
var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrProfileNotFound, http.StatusNotFound},
	{util.ErrLevelNotFound, http.StatusNotFound},
	{util.ErrLessonNotFound, http.StatusNotFound},
	{util.ErrExerciseNotFound, http.StatusNotFound},
	{util.ErrMilestoneNotFound, http.StatusNotFound},
	{util.ErrQuestNotFound, http.StatusNotFound},
	{util.ErrDistrictNotFound, http.StatusNotFound},
	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrMaxAttemptsReached, http.StatusConflict},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrLevelLocked, http.StatusForbidden},
	{util.ErrDistrictLocked, http.StatusForbidden},
	{util.ErrQuestExpired, http.StatusGone},
	{util.ErrQuestNotStarted, http.StatusBadRequest},
	{util.ErrQuestIncomplete, http.StatusBadRequest},
	{util.ErrNotEnoughTickets, http.StatusPaymentRequired},
	{util.ErrUnknownExerciseType, http.StatusUnprocessableEntity},
	{util.ErrAudioRequired, http.StatusBadRequest},
	{util.ErrRubricRequired, http.StatusBadRequest},
	{util.ErrClientScoresDenied, http.StatusForbidden},
	{util.ErrInvalidWorkbook, http.StatusBadRequest},
}

// respondError 业务错误返回对应状态码，外部 AI 超时 504、其余失败 502，其它为 500
func respondError(ctx *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.status, err.Error())
			return
		}
	}

	var we *service.WebhookError
	if errors.As(err, &we) {
		status := http.StatusBadGateway
		if we.Kind == service.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		ctx.JSON(status, util.Response{
			Code:    status,
			Message: "AI service error: " + string(we.Kind),
			Data:    gin.H{"kind": we.Kind, "upstreamStatus": we.StatusCode},
		})
		return
	}

	util.LogInternalError(ctx, err)
}

// pathID 解析路径中的 ID，非法时返回 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

// currentUserID 已通过 AuthMiddleware 的请求一定带有用户信息
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
