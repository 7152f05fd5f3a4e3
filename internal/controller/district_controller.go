package controller

import (
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DistrictController struct {
	DistrictService *service.DistrictService
}

func NewDistrictController(districtService *service.DistrictService) *DistrictController {
	return &DistrictController{DistrictService: districtService}
}

// ListDistricts godoc
// @Summary 街区列表
// @Tags 街区
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]model.District}
// @Router /api/districts [get]
func (c *DistrictController) ListDistricts(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	districts, err := c.DistrictService.List(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, districts)
}

// EnterDistrict godoc
// @Summary 进入街区
// @Description 首次进入扣除门票
// @Tags 街区
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "街区ID"
// @Success 200 {object} util.Response{data=service.EnterResult}
// @Failure 402 {object} util.Response "门票不足"
// @Failure 403 {object} util.Response "街区未解锁"
// @Router /api/districts/{id}/enter [post]
func (c *DistrictController) EnterDistrict(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.DistrictService.Enter(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
