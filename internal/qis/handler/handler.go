package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-qis/internal/qis/engine"
	"github.com/bitfantasy/nimo-qis/internal/qis/service"
)

// Handlers QIS处理器集合
type Handlers struct {
	Record    *RecordHandler
	Reference *ReferenceHandler
	Export    *ExportHandler
}

// NewHandlers 创建QIS处理器集合
func NewHandlers(svcs *service.Services) *Handlers {
	return &Handlers{
		Record:    NewRecordHandler(svcs.Record),
		Reference: NewReferenceHandler(svcs.Reference),
		Export:    NewExportHandler(svcs.Export),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Accepted 本地已生效但上游未确认（提交时上游失败回退到本地草稿）
func Accepted(c *gin.Context, message string, data interface{}) {
	c.JSON(202, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func BadGateway(c *gin.Context, message string) {
	Error(c, 50200, message)
}

// ValidationFailed 校验错误以结构化数据返回，供前端按字段/措施下标渲染
func ValidationFailed(c *gin.Context, result engine.ValidationResult) {
	c.JSON(422, Response{
		Code:    42200,
		Message: "校验不通过",
		Data:    result,
	})
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
