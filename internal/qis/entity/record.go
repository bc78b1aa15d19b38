package entity

import "strings"

// Action 纠正/预防措施行项，嵌套在PDI记录中随记录整体提交
type Action struct {
	ActionID    string `json:"actionId"`
	Action      string `json:"action"`
	Responsible string `json:"responsible"`
	DueDate     string `json:"dueDate"` // YYYY-MM-DD，可为空
}

// Record PDI检验记录
// 上游接口使用camelCase字段名，这里与线上payload保持一致
type Record struct {
	ID                string   `json:"id"`
	ProductionCode    string   `json:"productionCode"`
	Product           string   `json:"product"`
	Date              string   `json:"date"` // YYYY-MM-DD
	Shift             string   `json:"shift"`
	DefectName        string   `json:"defectName"`
	AreaOfDefect      string   `json:"areaOfDefect"`
	Quantity          int      `json:"quantity"`
	Inspector         string   `json:"inspector"`
	Status            string   `json:"status"`   // Open/In Progress/Closed
	Severity          string   `json:"severity"` // low/medium/high
	CorrectiveActions []Action `json:"correctiveActions"`
	PreventiveActions []Action `json:"preventiveActions"`
}

// RecordForm 编辑中的草稿表单
// Quantity保持字符串，提交前由校验引擎解析为整数
type RecordForm struct {
	ProductionCode string `json:"productionCode"`
	Product        string `json:"product"`
	Date           string `json:"date"`
	Shift          string `json:"shift"`
	DefectName     string `json:"defectName"`
	AreaOfDefect   string `json:"areaOfDefect"`
	Quantity       string `json:"quantity"`
	Inspector      string `json:"inspector"`
	Severity       string `json:"severity"`
}

// Reference 参考数据描述符（员工/产品/缺陷）
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// 记录状态
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusClosed     = "Closed"
)

// 严重程度
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// CanonicalStatus 统一状态大小写
// 上游历史数据中状态大小写不一致，所有边界（归一化、提交、状态更新、筛选）
// 都必须经过这里
func CanonicalStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen
	case "in progress", "in_progress", "inprogress":
		return StatusInProgress
	case "closed":
		return StatusClosed
	}
	return s
}

// IsValidStatus 是否为合法状态值
func IsValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// CanonicalSeverity 统一严重程度大小写
func CanonicalSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	}
	return s
}
