package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID 生成记录/措施的唯一标识
// 纯函数，不会失败，可直接作为map key使用
func NewID() string {
	return uuid.New().String()
}

// PositionalID 归一化时为缺失id的记录生成位置相关的标识
// 同一批payload中相同位置的记录重复归一化也不会冲突
func PositionalID(index int) string {
	return fmt.Sprintf("generated-%d-%s", index, NewID())
}
