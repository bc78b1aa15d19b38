package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-qis/internal/qis/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ExportRecords 导出当前记录集合为XLSX
// 默认直接下载；target=object 时上传到对象存储并返回地址
// GET /api/v1/qis/records/export?target=object
func (h *ExportHandler) ExportRecords(c *gin.Context) {
	if c.Query("target") == "object" {
		url, err := h.svc.ExportToObjectStore(c.Request.Context())
		if err != nil {
			if errors.Is(err, service.ErrObjectStoreDisabled) {
				BadRequest(c, "未配置对象存储")
				return
			}
			InternalError(c, "导出失败: "+err.Error())
			return
		}
		Success(c, gin.H{"url": url})
		return
	}

	filename, data, err := h.svc.Export()
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, xlsxContentType, data)
}
