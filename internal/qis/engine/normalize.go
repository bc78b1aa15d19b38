package engine

import (
	"reflect"
	"strconv"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
)

// Normalize 把上游返回的原始payload修复为满足数据模型不变量的记录列表
//   - 非数组payload降级为空列表，绝不panic
//   - 缺失id的记录按位置补齐 generated-<index>-<uuid>
//   - 两个措施列表缺失/非数组时替换为空列表，缺失actionId的措施补齐标识
//   - 按id去重，保留首次出现的记录
//
// 对已归一化的列表重复调用是幂等的：已有标识全部原样保留
func Normalize(raw any) []entity.Record {
	items, ok := asSlice(raw)
	if !ok {
		return []entity.Record{}
	}

	out := make([]entity.Record, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		rec := recordFromAny(item)
		if rec.ID == "" {
			rec.ID = PositionalID(i)
		}
		// 防御：标识生成失败的记录直接丢弃
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}

		rec.CorrectiveActions = EnsureActionIDs(rec.CorrectiveActions)
		rec.PreventiveActions = EnsureActionIDs(rec.PreventiveActions)
		out = append(out, rec)
	}
	return out
}

// asSlice 把任意slice/array类型展开为[]any
func asSlice(raw any) ([]any, bool) {
	if raw == nil {
		return nil, false
	}
	if items, ok := raw.([]any); ok {
		return items, true
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}

// recordFromAny 容错地把单个元素转换为Record
// 字段类型不符时取零值，不中断整批归一化
func recordFromAny(item any) entity.Record {
	switch v := item.(type) {
	case entity.Record:
		v.Status = entity.CanonicalStatus(v.Status)
		v.Severity = entity.CanonicalSeverity(v.Severity)
		return v
	case *entity.Record:
		if v == nil {
			return entity.Record{}
		}
		return recordFromAny(*v)
	case map[string]any:
		return recordFromMap(v)
	}
	return entity.Record{}
}

func recordFromMap(m map[string]any) entity.Record {
	return entity.Record{
		ID:                getString(m, "id"),
		ProductionCode:    getString(m, "productionCode"),
		Product:           getString(m, "product"),
		Date:              getString(m, "date"),
		Shift:             getString(m, "shift"),
		DefectName:        getString(m, "defectName"),
		AreaOfDefect:      getString(m, "areaOfDefect"),
		Quantity:          getInt(m, "quantity"),
		Inspector:         getString(m, "inspector"),
		Status:            entity.CanonicalStatus(getString(m, "status")),
		Severity:          entity.CanonicalSeverity(getString(m, "severity")),
		CorrectiveActions: actionsFromAny(m["correctiveActions"]),
		PreventiveActions: actionsFromAny(m["preventiveActions"]),
	}
}

// actionsFromAny 提取措施列表，缺失/非数组替换为空列表
func actionsFromAny(raw any) []entity.Action {
	items, ok := asSlice(raw)
	if !ok {
		return []entity.Action{}
	}
	out := make([]entity.Action, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case entity.Action:
			out = append(out, v)
		case map[string]any:
			out = append(out, entity.Action{
				ActionID:    getString(v, "actionId"),
				Action:      getString(v, "action"),
				Responsible: getString(v, "responsible"),
				DueDate:     getString(v, "dueDate"),
			})
		default:
			out = append(out, entity.Action{})
		}
	}
	return out
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
