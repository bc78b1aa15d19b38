package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
	"github.com/bitfantasy/nimo-qis/internal/qis/service"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

// RecordHandler PDI记录处理器
type RecordHandler struct {
	svc *service.RecordService
}

func NewRecordHandler(svc *service.RecordService) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// SubmitRequest 创建/更新记录的请求体
// 措施列表仅在编辑已有记录时有意义
type SubmitRequest struct {
	entity.RecordForm
	CorrectiveActions []entity.Action `json:"correctiveActions"`
	PreventiveActions []entity.Action `json:"preventiveActions"`
}

// ListRecords 记录列表
// GET /api/v1/qis/records?status=xxx&severity=xxx&keyword=xxx
func (h *RecordHandler) ListRecords(c *gin.Context) {
	page, pageSize := GetPagination(c)

	items, total := h.svc.List(
		c.Query("status"),
		c.Query("severity"),
		c.Query("keyword"),
		page, pageSize,
	)

	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// GetRecord 记录详情
// GET /api/v1/qis/records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	rec, err := h.svc.Get(c.Param("id"))
	if err != nil {
		NotFound(c, "记录不存在")
		return
	}
	Success(c, rec)
}

// CreateRecord 创建记录
// POST /api/v1/qis/records
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	h.submit(c, service.SubmitInput{
		Form:       req.RecordForm,
		Corrective: req.CorrectiveActions,
		Preventive: req.PreventiveActions,
	}, true)
}

// UpdateRecord 编辑并重新提交记录（携带措施列表）
// PUT /api/v1/qis/records/:id
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	h.submit(c, service.SubmitInput{
		Form:       req.RecordForm,
		Corrective: req.CorrectiveActions,
		Preventive: req.PreventiveActions,
		EditingID:  c.Param("id"),
	}, false)
}

func (h *RecordHandler) submit(c *gin.Context, in service.SubmitInput, creating bool) {
	entry, result, err := h.svc.Submit(c.Request.Context(), in)
	if !result.Valid() {
		ValidationFailed(c, result)
		return
	}
	if err != nil {
		// 本地集合已按草稿合并，编辑未丢失；把失败原因作为消息返回
		message := "上游提交失败，已保留本地草稿: " + err.Error()
		if errors.Is(err, upstream.ErrSessionExpired) {
			message = "会话已过期，请重新登录；已保留本地草稿"
		}
		Accepted(c, message, entry)
		return
	}
	if creating {
		Created(c, entry)
		return
	}
	Success(c, entry)
}

// UpdateRecordStatus 更新记录状态
// PATCH /api/v1/qis/records/:id/status
func (h *RecordHandler) UpdateRecordStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rec, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			NotFound(c, "记录不存在")
		case errors.Is(err, upstream.ErrSessionExpired):
			BadGateway(c, "会话已过期，请重新登录")
		default:
			BadGateway(c, "更新状态失败: "+err.Error())
		}
		return
	}
	Success(c, rec)
}

// DeleteRecord 删除记录
// DELETE /api/v1/qis/records/:id
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			NotFound(c, "记录不存在")
		case errors.Is(err, upstream.ErrSessionExpired):
			BadGateway(c, "会话已过期，请重新登录")
		default:
			BadGateway(c, "删除记录失败: "+err.Error())
		}
		return
	}
	Success(c, nil)
}

// RefreshRecords 从上游重新同步全量记录
// POST /api/v1/qis/records/refresh
func (h *RecordHandler) RefreshRecords(c *gin.Context) {
	count, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		if errors.Is(err, upstream.ErrSessionExpired) {
			BadGateway(c, "会话已过期，请重新登录")
			return
		}
		BadGateway(c, "同步记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"count": count})
}
