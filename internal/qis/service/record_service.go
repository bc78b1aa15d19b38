package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/notify"
	"github.com/bitfantasy/nimo-qis/internal/qis/engine"
	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
	"github.com/bitfantasy/nimo-qis/internal/qis/store"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

// ErrRecordNotFound 集合中不存在该记录
var ErrRecordNotFound = errors.New("记录不存在")

// RecordService PDI记录服务
// 串起 上游取数→归一化→集合 和 草稿校验→提交→合并→集合 两条主链路。
// 传输失败时集合保持最后一次已知的好状态，通知器只收到一条人类可读消息。
type RecordService struct {
	store    *store.RecordStore
	up       *upstream.Client
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewRecordService(st *store.RecordStore, up *upstream.Client, n notify.Notifier, logger *zap.Logger) *RecordService {
	return &RecordService{
		store:    st,
		up:       up,
		notifier: n,
		logger:   logger,
	}
}

// Refresh 从上游拉取全量记录并归一化后整体替换集合
// 传输失败时不动集合，调用方拿到的仍是最后一次成功加载的数据
func (s *RecordService) Refresh(ctx context.Context) (int, error) {
	raw, err := s.up.FetchRecords(ctx)
	if err != nil {
		s.logger.Warn("拉取PDI记录失败", zap.Error(err))
		s.notifier.Notify(ctx, notify.LevelError, "PDI记录同步失败",
			notify.FormatUpstreamFailure("拉取记录", err))
		return 0, err
	}

	records := engine.Normalize(raw)
	s.store.Replace(records)
	s.logger.Info("PDI记录已刷新", zap.Int("count", len(records)))
	return len(records), nil
}

// List 筛选并分页返回集合快照
func (s *RecordService) List(status, severity, keyword string, page, pageSize int) ([]entity.Record, int) {
	filtered := s.store.Filter(status, severity, keyword)
	total := len(filtered)

	start := (page - 1) * pageSize
	if start >= total {
		return []entity.Record{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// Get 按id获取记录
func (s *RecordService) Get(id string) (entity.Record, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return entity.Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// SubmitInput 一次提交的全部输入：草稿表单、两个措施列表、编辑目标
// EditingID为空表示新建
type SubmitInput struct {
	Form       entity.RecordForm
	Corrective []entity.Action
	Preventive []entity.Action
	EditingID  string
}

// Submit 校验并提交草稿，把结果合并进集合
//
// 返回值语义：
//   - 校验不通过：result非空，entry为零值，err为nil——校验错误是数据不是异常
//   - 上游失败：entry为按本地草稿合并后的条目（用户编辑不丢失），err携带失败原因
//   - 成功：entry为服务端回显合并后的条目
func (s *RecordService) Submit(ctx context.Context, in SubmitInput) (entity.Record, engine.ValidationResult, error) {
	editing := in.EditingID != ""

	result := engine.Validate(in.Form, in.Corrective, in.Preventive, editing, time.Now())
	if !result.Valid() {
		return entity.Record{}, result, nil
	}

	draft := s.buildDraft(in, editing)

	payload := upstream.SubmitPayload{
		ID:             in.EditingID,
		ProductionCode: draft.ProductionCode,
		Product:        draft.Product,
		Date:           draft.Date,
		Shift:          draft.Shift,
		DefectName:     draft.DefectName,
		AreaOfDefect:   draft.AreaOfDefect,
		Quantity:       draft.Quantity,
		Inspector:      draft.Inspector,
		Severity:       draft.Severity,
	}
	// 措施列表只在编辑已有记录时随payload提交
	if editing {
		payload.Status = draft.Status
		payload.CorrectiveActions = draft.CorrectiveActions
		payload.PreventiveActions = draft.PreventiveActions
	}

	resp, upErr := s.up.SubmitRecord(ctx, payload)

	// 无论上游结果如何都执行合并：响应不可用时回退到本地草稿，
	// 用户的编辑不会从视图中消失
	merged := engine.Reconcile(s.store.All(), in.EditingID, draft, resp)
	s.store.Replace(merged)

	entry := mergedEntry(merged, in.EditingID)

	if upErr != nil {
		title := "PDI记录提交失败"
		if errors.Is(upErr, upstream.ErrSessionExpired) {
			title = "会话已过期"
		}
		s.logger.Warn("提交PDI记录失败，已保留本地草稿",
			zap.String("editing_id", in.EditingID), zap.Error(upErr))
		s.notifier.Notify(ctx, notify.LevelError, title,
			notify.FormatUpstreamFailure("提交记录", upErr))
		return entry, engine.ValidationResult{}, upErr
	}

	s.logger.Info("PDI记录已提交", zap.String("id", entry.ID), zap.Bool("editing", editing))
	return entry, engine.ValidationResult{}, nil
}

// buildDraft 把表单和措施列表组装成本地草稿记录
// 新建流程状态固定为Open，编辑流程沿用集合中已有的状态
func (s *RecordService) buildDraft(in SubmitInput, editing bool) entity.Record {
	// 校验与这里一致：都按去除首尾空白后的值解析
	quantity, _ := strconv.Atoi(strings.TrimSpace(in.Form.Quantity))

	draft := entity.Record{
		ID:                in.EditingID,
		ProductionCode:    in.Form.ProductionCode,
		Product:           in.Form.Product,
		Date:              in.Form.Date,
		Shift:             in.Form.Shift,
		DefectName:        in.Form.DefectName,
		AreaOfDefect:      in.Form.AreaOfDefect,
		Quantity:          quantity,
		Inspector:         in.Form.Inspector,
		Status:            entity.StatusOpen,
		Severity:          entity.CanonicalSeverity(in.Form.Severity),
		CorrectiveActions: in.Corrective,
		PreventiveActions: in.Preventive,
	}
	if editing {
		if existing, ok := s.store.Get(in.EditingID); ok {
			draft.Status = existing.Status
		}
	}
	return draft
}

// mergedEntry 从合并结果中取出本次提交对应的条目
func mergedEntry(merged []entity.Record, editingID string) entity.Record {
	if editingID != "" {
		for _, r := range merged {
			if r.ID == editingID {
				return r
			}
		}
	}
	if len(merged) > 0 {
		return merged[len(merged)-1]
	}
	return entity.Record{}
}

// UpdateStatus 更新记录状态：上游成功后只补丁本地status字段，不重新拉取
func (s *RecordService) UpdateStatus(ctx context.Context, id, status string) (entity.Record, error) {
	status = entity.CanonicalStatus(status)
	if !entity.IsValidStatus(status) {
		return entity.Record{}, fmt.Errorf("非法的状态值: %s", status)
	}
	if _, ok := s.store.Get(id); !ok {
		return entity.Record{}, ErrRecordNotFound
	}

	if err := s.up.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Warn("更新记录状态失败", zap.String("id", id), zap.Error(err))
		s.notifier.Notify(ctx, notify.LevelError, "状态更新失败",
			notify.FormatUpstreamFailure("更新状态", err))
		return entity.Record{}, err
	}

	s.store.PatchStatus(id, status)
	rec, _ := s.store.Get(id)
	return rec, nil
}

// Delete 删除记录：上游成功后从本地集合移除，其他记录不受影响
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if _, ok := s.store.Get(id); !ok {
		return ErrRecordNotFound
	}

	if err := s.up.DeleteRecord(ctx, id); err != nil {
		s.logger.Warn("删除记录失败", zap.String("id", id), zap.Error(err))
		s.notifier.Notify(ctx, notify.LevelError, "记录删除失败",
			notify.FormatUpstreamFailure("删除记录", err))
		return err
	}

	s.store.Remove(id)
	return nil
}
