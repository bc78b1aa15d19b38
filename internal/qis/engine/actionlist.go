package engine

import (
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
)

// ActionField 措施行项的可编辑字段
type ActionField string

const (
	ActionFieldText        ActionField = "action"
	ActionFieldResponsible ActionField = "responsible"
	ActionFieldDueDate     ActionField = "dueDate"
)

// NewAction 创建一条新措施：生成actionId，截止日期默认今天
func NewAction() entity.Action {
	return entity.Action{
		ActionID:    NewID(),
		Action:      "",
		Responsible: "",
		DueDate:     time.Now().Format("2006-01-02"),
	}
}

// AddAction 追加一条新措施，返回新列表，不修改入参
func AddAction(list []entity.Action) []entity.Action {
	out := make([]entity.Action, 0, len(list)+1)
	out = append(out, list...)
	return append(out, NewAction())
}

// RemoveAction 删除index处的措施，返回新列表
// index越界是调用方契约违反，这里不做静默截断
func RemoveAction(list []entity.Action, index int) ([]entity.Action, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("措施下标越界: %d (列表长度 %d)", index, len(list))
	}
	out := make([]entity.Action, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), nil
}

// UpdateAction 替换index处措施的单个字段，其余元素原样保留
func UpdateAction(list []entity.Action, index int, field ActionField, value string) ([]entity.Action, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("措施下标越界: %d (列表长度 %d)", index, len(list))
	}

	out := make([]entity.Action, len(list))
	copy(out, list)

	switch field {
	case ActionFieldText:
		out[index].Action = value
	case ActionFieldResponsible:
		out[index].Responsible = value
	case ActionFieldDueDate:
		out[index].DueDate = value
	default:
		return nil, fmt.Errorf("未知的措施字段: %s", field)
	}
	return out, nil
}

// EnsureActionIDs 为缺失actionId的措施补齐标识
// 同一列表内actionId必须唯一：重复标识保留首次出现的行项，
// 后续重复项重新生成；其余已有标识原样保留
func EnsureActionIDs(list []entity.Action) []entity.Action {
	out := make([]entity.Action, len(list))
	copy(out, list)
	seen := make(map[string]struct{}, len(out))
	for i := range out {
		if _, dup := seen[out[i].ActionID]; dup || out[i].ActionID == "" {
			out[i].ActionID = NewID()
		}
		seen[out[i].ActionID] = struct{}{}
	}
	return out
}
