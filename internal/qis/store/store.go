package store

import (
	"strings"
	"sync"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
)

// RecordStore 内存中的PDI记录集合
// 所有变更都是整体替换或单记录补丁，每次操作对集合要么全部生效要么完全不生效，
// 不会留下半更新状态。读写锁保护，gin handler可以并发进入。
type RecordStore struct {
	mu      sync.RWMutex
	records []entity.Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: []entity.Record{}}
}

// Replace 整体替换集合（初始加载/刷新/合并结果落盘）
func (s *RecordStore) Replace(records []entity.Record) {
	cp := make([]entity.Record, len(records))
	copy(cp, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cp
}

// All 返回集合快照
func (s *RecordStore) All() []entity.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]entity.Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// Get 按id查找记录
func (s *RecordStore) Get(id string) (entity.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return entity.Record{}, false
}

// Len 当前记录数
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PatchStatus 只替换匹配记录的status字段，其余字段（包括措施列表）保持本地已有值
func (s *RecordStore) PatchStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			return true
		}
	}
	return false
}

// Remove 按id删除记录，不影响其他记录
func (s *RecordStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// Filter 按状态/严重程度/关键字筛选快照
// 关键字匹配缺陷名称、缺陷部位和生产编码
func (s *RecordStore) Filter(status, severity, keyword string) []entity.Record {
	status = entity.CanonicalStatus(status)
	severity = entity.CanonicalSeverity(severity)
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Record, 0, len(s.records))
	for _, r := range s.records {
		if status != "" && r.Status != status {
			continue
		}
		if severity != "" && r.Severity != severity {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(r.DefectName), keyword) &&
			!strings.Contains(strings.ToLower(r.AreaOfDefect), keyword) &&
			!strings.Contains(strings.ToLower(r.ProductionCode), keyword) {
			continue
		}
		out = append(out, r)
	}
	return out
}
