package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/qis/store"
)

// ErrObjectStoreDisabled 未配置对象存储
var ErrObjectStoreDisabled = errors.New("未配置对象存储")

const exportSheet = "PDI记录"

var exportHeaders = []string{
	"ID", "生产编码", "产品", "日期", "班次", "缺陷名称", "缺陷部位",
	"数量", "检验员", "状态", "严重程度", "纠正措施数", "预防措施数",
}

// ExportService 把当前记录集合导出为XLSX
// 可选上传到MinIO并返回对象地址
type ExportService struct {
	store  *store.RecordStore
	mc     *minio.Client
	bucket string
	logger *zap.Logger
}

func NewExportService(st *store.RecordStore, mc *minio.Client, bucket string, logger *zap.Logger) *ExportService {
	return &ExportService{store: st, mc: mc, bucket: bucket, logger: logger}
}

// Export 生成XLSX文件内容
func (s *ExportService) Export() (filename string, data []byte, err error) {
	records := s.store.All()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return "", nil, fmt.Errorf("创建导出工作表失败: %w", err)
	}

	for col, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	for row, r := range records {
		values := []any{
			r.ID, r.ProductionCode, r.Product, r.Date, r.Shift,
			r.DefectName, r.AreaOfDefect, r.Quantity, r.Inspector,
			r.Status, r.Severity,
			len(r.CorrectiveActions), len(r.PreventiveActions),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("生成导出文件失败: %w", err)
	}

	filename = fmt.Sprintf("pdi-records-%s.xlsx", time.Now().Format("20060102-150405"))
	return filename, buf.Bytes(), nil
}

// ExportToObjectStore 生成XLSX并上传到MinIO，返回对象访问路径
func (s *ExportService) ExportToObjectStore(ctx context.Context) (string, error) {
	if s.mc == nil {
		return "", ErrObjectStoreDisabled
	}

	filename, data, err := s.Export()
	if err != nil {
		return "", err
	}

	objectName := "exports/" + filename
	_, err = s.mc.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		})
	if err != nil {
		return "", fmt.Errorf("上传导出文件失败: %w", err)
	}

	s.logger.Info("导出文件已上传", zap.String("object", objectName))
	return fmt.Sprintf("/%s/%s", s.bucket, objectName), nil
}
