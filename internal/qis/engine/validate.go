package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
)

// 校验错误文案
// 数量的两种失败原因（非数字/负数）必须是不同文案，前端依赖这个区分
const (
	msgQuantityNotNumber = "数量必须是整数"
	msgQuantityNegative  = "数量不能为负数"
	msgDateInvalid       = "日期格式无效"
	msgDateInFuture      = "日期不能晚于今天"
	msgActionRequired    = "措施内容不能为空"
	msgOwnerRequired     = "责任人不能为空"
	msgDueDateRequired   = "截止日期不能为空"
	msgDueDateInvalid    = "截止日期格式无效"
	msgDueDateInPast     = "截止日期不能早于今天"
)

// 必填核心字段及其文案标签
var requiredFieldLabels = []struct{ field, label string }{
	{"defectName", "缺陷名称"},
	{"areaOfDefect", "缺陷部位"},
	{"quantity", "数量"},
	{"inspector", "检验员"},
	{"severity", "严重程度"},
	{"date", "日期"},
	{"shift", "班次"},
	{"product", "产品"},
}

// ActionItemErrors 单条措施的字段级错误
type ActionItemErrors struct {
	Action      string `json:"action,omitempty"`
	Responsible string `json:"responsible,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

func (e ActionItemErrors) empty() bool {
	return e.Action == "" && e.Responsible == "" && e.DueDate == ""
}

// ActionListErrors 一个措施列表的错误：列表级general错误或按下标索引的行项错误
// 行项错误按校验时的下标索引，不按actionId
type ActionListErrors struct {
	General string                   `json:"general,omitempty"`
	Items   map[int]ActionItemErrors `json:"items,omitempty"`
}

// ValidationResult 结构化校验结果，空结果表示校验通过
// 校验错误作为数据返回给调用方渲染，永远不会以error/panic形式抛出
type ValidationResult struct {
	Fields            map[string]string `json:"fields,omitempty"`
	CorrectiveActions *ActionListErrors `json:"correctiveActions,omitempty"`
	PreventiveActions *ActionListErrors `json:"preventiveActions,omitempty"`
}

// Valid 校验是否通过
func (r ValidationResult) Valid() bool {
	return len(r.Fields) == 0 && r.CorrectiveActions == nil && r.PreventiveActions == nil
}

// Validate 校验草稿记录及其两个措施列表
// 纯计算，不做I/O也不修改入参；字段失焦和提交前都可以同步调用。
// editing为true时（编辑已有记录的流程）才启用措施列表的严格校验，
// 新建流程不要求措施列表。
func Validate(form entity.RecordForm, corrective, preventive []entity.Action, editing bool, now time.Time) ValidationResult {
	result := ValidationResult{Fields: map[string]string{}}
	today := truncateToDay(now)

	formValues := map[string]string{
		"defectName":   form.DefectName,
		"areaOfDefect": form.AreaOfDefect,
		"quantity":     form.Quantity,
		"inspector":    form.Inspector,
		"severity":     form.Severity,
		"date":         form.Date,
		"shift":        form.Shift,
		"product":      form.Product,
	}
	for _, rf := range requiredFieldLabels {
		if strings.TrimSpace(formValues[rf.field]) == "" {
			result.Fields[rf.field] = rf.label + "不能为空"
		}
	}

	if q := strings.TrimSpace(form.Quantity); q != "" {
		if n, err := strconv.Atoi(q); err != nil {
			result.Fields["quantity"] = msgQuantityNotNumber
		} else if n < 0 {
			result.Fields["quantity"] = msgQuantityNegative
		}
	}

	if d := strings.TrimSpace(form.Date); d != "" {
		if day, err := parseDay(d); err != nil {
			result.Fields["date"] = msgDateInvalid
		} else if day.After(today) {
			result.Fields["date"] = msgDateInFuture
		}
	}

	if editing {
		result.CorrectiveActions = validateActions(corrective, "纠正措施", today)
		result.PreventiveActions = validateActions(preventive, "预防措施", today)
	}

	if len(result.Fields) == 0 {
		result.Fields = nil
	}
	return result
}

// validateActions 校验单个措施列表，无错误时返回nil
func validateActions(list []entity.Action, kind string, today time.Time) *ActionListErrors {
	if len(list) == 0 {
		return &ActionListErrors{General: "至少需要一条" + kind}
	}

	items := map[int]ActionItemErrors{}
	for i, a := range list {
		var e ActionItemErrors
		if strings.TrimSpace(a.Action) == "" {
			e.Action = msgActionRequired
		}
		if strings.TrimSpace(a.Responsible) == "" {
			e.Responsible = msgOwnerRequired
		}
		if strings.TrimSpace(a.DueDate) == "" {
			e.DueDate = msgDueDateRequired
		} else if day, err := parseDay(a.DueDate); err != nil {
			e.DueDate = msgDueDateInvalid
		} else if day.Before(today) {
			e.DueDate = msgDueDateInPast
		}
		if !e.empty() {
			items[i] = e
		}
	}
	if len(items) == 0 {
		return nil
	}
	return &ActionListErrors{Items: items}
}

// parseDay 解析YYYY-MM-DD日期
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
}

// truncateToDay 截断到天粒度，日期比较忽略时分秒
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
