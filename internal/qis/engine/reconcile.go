package engine

import "github.com/bitfantasy/nimo-qis/internal/qis/entity"

// Reconcile 把提交后的服务端响应合并进本地记录集合
//
// 基准条目的选择：
//   - 响应通过形状检查 → 以服务端回显为准，补齐其中缺失的actionId
//   - 响应缺失/形状不符 → 回退到本地草稿，编辑时沿用editingID，
//     新建时生成新id，同样补齐actionId
//
// editingID非空表示更新：原位替换id匹配的记录；为空表示新建：追加到末尾。
// 无关记录及其顺序一律不动，入参集合不被修改。
func Reconcile(prior []entity.Record, editingID string, draft entity.Record, serverResp any) []entity.Record {
	var validated entity.Record
	if IsRecord(serverResp) {
		validated = recordFromAny(serverResp)
	} else {
		validated = draft
		if editingID != "" {
			validated.ID = editingID
		} else {
			validated.ID = NewID()
		}
	}
	validated.CorrectiveActions = EnsureActionIDs(validated.CorrectiveActions)
	validated.PreventiveActions = EnsureActionIDs(validated.PreventiveActions)

	if editingID == "" {
		out := make([]entity.Record, 0, len(prior)+1)
		out = append(out, prior...)
		return append(out, validated)
	}

	out := make([]entity.Record, len(prior))
	copy(out, prior)
	for i := range out {
		if out[i].ID == editingID {
			out[i] = validated
			break
		}
	}
	return out
}
