package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/config"
	"github.com/bitfantasy/nimo-qis/internal/notify"
	"github.com/bitfantasy/nimo-qis/internal/qis/store"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

// Services QIS服务集合
type Services struct {
	Record    *RecordService
	Reference *ReferenceService
	Export    *ExportService
}

// NewServices 创建服务集合
// rdb/mc允许为nil：缓存和对象存储都是可选依赖
func NewServices(
	st *store.RecordStore,
	up *upstream.Client,
	rdb *redis.Client,
	mc *minio.Client,
	cfg *config.Config,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Services {
	return &Services{
		Record:    NewRecordService(st, up, notifier, logger),
		Reference: NewReferenceService(up, rdb, logger),
		Export:    NewExportService(st, mc, cfg.MinIO.Bucket, logger),
	}
}
