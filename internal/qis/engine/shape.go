package engine

// IsRecord 运行时形状检查：判断上游响应是否满足Record的形状
// 这是合并点的守卫——上游在部分失败时可能回显不完整或形状不同的对象，
// 只有通过检查的响应才能作为合并基准，否则回退到本地草稿
func IsRecord(raw any) bool {
	m, ok := raw.(map[string]any)
	if !ok {
		return false
	}

	stringFields := []string{
		"id", "defectName", "areaOfDefect", "inspector",
		"severity", "date", "shift", "product", "status",
	}
	for _, f := range stringFields {
		s, ok := m[f].(string)
		if !ok || s == "" {
			return false
		}
	}

	switch m["quantity"].(type) {
	case float64, int, int64:
	default:
		return false
	}

	if _, ok := asSlice(m["correctiveActions"]); !ok {
		return false
	}
	if _, ok := asSlice(m["preventiveActions"]); !ok {
		return false
	}
	return true
}
