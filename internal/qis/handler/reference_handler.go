package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-qis/internal/qis/service"
)

// ReferenceHandler 参考数据处理器
type ReferenceHandler struct {
	svc *service.ReferenceService
}

func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// GetReferences 一次性返回员工/产品/缺陷三类参考数据
// 单类拉取失败降级为空列表，不会让整个请求失败
// GET /api/v1/qis/references
func (h *ReferenceHandler) GetReferences(c *gin.Context) {
	Success(c, h.svc.GetAll(c.Request.Context()))
}
