package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

// 参考数据类型
const (
	RefKindEmployees = "employees"
	RefKindProducts  = "products"
	RefKindDefects   = "defects"
)

const refCacheTTL = 5 * time.Minute

// ReferenceData 三类参考数据的一次性快照
type ReferenceData struct {
	Employees []entity.Reference `json:"employees"`
	Products  []entity.Reference `json:"products"`
	Defects   []entity.Reference `json:"defects"`
}

// ReferenceService 参考数据服务（员工/产品/缺陷清单）
// 单类拉取失败只降级为该类空列表，不影响其他类，也不影响记录加载。
// Redis可选：未配置时每次直连上游。
type ReferenceService struct {
	up     *upstream.Client
	rdb    *redis.Client
	logger *zap.Logger
}

func NewReferenceService(up *upstream.Client, rdb *redis.Client, logger *zap.Logger) *ReferenceService {
	return &ReferenceService{up: up, rdb: rdb, logger: logger}
}

// GetAll 并发拉取三类参考数据
// 三个请求彼此独立，单个失败不中断整体
func (s *ReferenceService) GetAll(ctx context.Context) ReferenceData {
	var data ReferenceData
	var wg sync.WaitGroup

	fetch := func(kind string, dst *[]entity.Reference) {
		defer wg.Done()
		*dst = s.fetchKind(ctx, kind)
	}

	wg.Add(3)
	go fetch(RefKindEmployees, &data.Employees)
	go fetch(RefKindProducts, &data.Products)
	go fetch(RefKindDefects, &data.Defects)
	wg.Wait()

	return data
}

// Lookup 把一类参考数据压成 id→显示名 的查找表
func (s *ReferenceService) Lookup(ctx context.Context, kind string) map[string]string {
	refs := s.fetchKind(ctx, kind)
	out := make(map[string]string, len(refs))
	for _, r := range refs {
		out[r.ID] = r.Name
	}
	return out
}

// fetchKind 拉取单类参考数据，优先走缓存，失败降级为空列表
func (s *ReferenceService) fetchKind(ctx context.Context, kind string) []entity.Reference {
	cacheKey := "qis:ref:" + kind

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var refs []entity.Reference
			if json.Unmarshal(cached, &refs) == nil {
				return refs
			}
		}
	}

	refs, err := s.up.FetchReference(ctx, kind)
	if err != nil {
		s.logger.Warn("拉取参考数据失败，降级为空列表",
			zap.String("kind", kind), zap.Error(err))
		return []entity.Reference{}
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(refs); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, raw, refCacheTTL).Err(); err != nil {
				s.logger.Warn("写入参考数据缓存失败", zap.String("kind", kind), zap.Error(err))
			}
		}
	}
	return refs
}
