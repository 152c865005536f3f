package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/batch-hub/batch-hub/internal/blob"
	"github.com/batch-hub/batch-hub/internal/cache"
	"github.com/batch-hub/batch-hub/internal/config"
	"github.com/batch-hub/batch-hub/internal/entity"
	"github.com/batch-hub/batch-hub/internal/logging"
	"github.com/batch-hub/batch-hub/internal/remote"
	"github.com/batch-hub/batch-hub/internal/store"
)

// 内容来源层标记，写入下载日志的 tier 字段。
const (
	TierCache   = "cache"
	TierBlob    = "blob"
	TierNetwork = "network"
)

// Service 将远端客户端、元数据库、Blob 存储与磁盘缓存组合为
// 批次编排层。所有读写路径都从这里进入，处理器不直接触达各层。
type Service struct {
	remote        *remote.Client
	store         *store.Store
	blobs         blob.Store
	cache         *cache.Store
	logger        *logrus.Logger
	maxConcurrent int
}

// New 构造编排层。maxConcurrent 取自远端配置的并发下载上限。
func New(client *remote.Client, metaStore *store.Store, blobs blob.Store, cacheStore *cache.Store, logger *logrus.Logger, cfg config.RemoteConfig) *Service {
	maxConcurrent := cfg.MaxConcurrentDownloads
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		remote:        client,
		store:         metaStore,
		blobs:         blobs,
		cache:         cacheStore,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// DownloadResult 描述一次内容读取：实际字节、命中的层级与批次记录。
type DownloadResult struct {
	Batch *entity.Batch
	Data  []byte
	Tier  string
}

// DeleteResult 汇总级联删除的各层副作用。
type DeleteResult struct {
	OrgDeleted     bool
	BatchesDeleted int64
	BlobsDeleted   int
}

// FetchMetadata 返回组织及其批次记录。非强制刷新时本地已有的组织记录
// 即视为权威命中；未命中或强制刷新时从远端同步：组织记录整体覆盖，
// 批次记录只补缺不覆盖，已下载批次因此保留其 Blob 引用。
func (s *Service) FetchMetadata(ctx context.Context, orgCode string, forceRefresh bool) (*entity.Org, []*entity.Batch, error) {
	if err := ValidateOrgCode(orgCode); err != nil {
		return nil, nil, err
	}

	if !forceRefresh {
		org, found, err := s.store.GetOrg(ctx, orgCode)
		if err != nil {
			// 本地读失败降级为未命中，转而尝试远端
			s.logger.WithFields(logging.OrgFields("metadata_local_read", orgCode)).
				WithError(err).Warn("本地元数据读取失败，降级为远端同步")
		} else if found {
			batches, err := s.store.GetBatchesByOrg(ctx, orgCode)
			if err != nil {
				s.logger.WithFields(logging.OrgFields("metadata_local_read", orgCode)).
					WithError(err).Warn("本地批次读取失败，降级为远端同步")
			} else {
				return org, batches, nil
			}
		}
	}

	descriptors, err := s.remote.FetchBatchList(ctx, orgCode)
	if err != nil {
		return nil, nil, err
	}

	org, err := s.syncMetadata(ctx, orgCode, descriptors)
	if err != nil {
		return nil, nil, err
	}

	batches, err := s.store.GetBatchesByOrg(ctx, orgCode)
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logging.OrgFields("metadata_synced", orgCode)).
		WithField("batch_count", len(batches)).Info("远端元数据同步完成")
	return org, batches, nil
}

// syncMetadata 将远端列表落库：组织记录覆盖写，批次记录仅创建缺失项。
func (s *Service) syncMetadata(ctx context.Context, orgCode string, descriptors []remote.BatchDescriptor) (*entity.Org, error) {
	orgName := orgCode
	for _, desc := range descriptors {
		if desc.OrgName != "" {
			orgName = desc.OrgName
			break
		}
	}

	org := entity.NewOrg(orgCode, orgName, len(descriptors))
	if existing, found, err := s.store.GetOrg(ctx, orgCode); err == nil && found {
		org.CreatedAt = existing.CreatedAt
		org.Metadata = existing.Metadata
	}
	if err := s.store.UpsertOrg(ctx, org); err != nil {
		return nil, err
	}

	for _, desc := range descriptors {
		_, found, err := s.store.GetBatch(ctx, desc.BatchID)
		if err != nil {
			return nil, err
		}
		if found {
			continue
		}

		batch := &entity.Batch{
			BatchID:     desc.BatchID,
			OrgCode:     orgCode,
			BatchName:   desc.BatchName,
			Filename:    SanitizeFilename(desc.Filename),
			FileSize:    desc.FileSize,
			ContentType: desc.ContentType,
			CreatedAt:   time.Now().UTC(),
			Metadata:    desc.Raw,
		}
		if err := s.store.UpsertBatch(ctx, batch); err != nil {
			return nil, err
		}
	}

	return org, nil
}

// DownloadOne 按 缓存 → Blob → 网络 的顺序取回批次内容。
// 网络路径写穿：先存 Blob，再更新记录，最后回填缓存。
func (s *Service) DownloadOne(ctx context.Context, batchID, orgCode string) (*DownloadResult, error) {
	batch, found, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &remote.BatchNotFoundError{BatchID: batchID, OrgCode: orgCode}
	}

	if data, hit, err := s.cache.Get(ctx, batchID); err != nil {
		return nil, &store.StorageError{Op: "cache_read", Cause: err}
	} else if hit {
		s.logDownload(orgCode, batchID, TierCache, int64(len(data)))
		return &DownloadResult{Batch: batch, Data: data, Tier: TierCache}, nil
	}

	if batch.BlobRef != "" {
		data, blobFound, err := s.blobs.Get(ctx, batch.BlobRef)
		if err != nil {
			return nil, err
		}
		if blobFound {
			s.refillCache(ctx, orgCode, batchID, data)
			s.logDownload(orgCode, batchID, TierBlob, int64(len(data)))
			return &DownloadResult{Batch: batch, Data: data, Tier: TierBlob}, nil
		}
		// Blob 引用悬空，按网络路径重新取回
	}

	downloadURL, err := s.remote.ResolveDownloadURL(ctx, batchID, orgCode)
	if err != nil {
		return nil, err
	}

	data, err := s.remote.StreamContent(ctx, downloadURL)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &remote.DownloadError{URL: downloadURL, Cause: errors.New("empty payload")}
	}

	blobID, err := s.blobs.Put(ctx, data, batch.Filename, map[string]string{
		"org_code": orgCode,
		"batch_id": batchID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	size := int64(len(data))
	if _, err := s.store.UpdateBatchFields(ctx, batchID, store.BatchUpdate{
		BlobRef:      &blobID,
		FileSize:     &size,
		DownloadedAt: &now,
	}); err != nil {
		return nil, err
	}
	batch.BlobRef = blobID
	batch.FileSize = size
	batch.DownloadedAt = &now

	s.refillCache(ctx, orgCode, batchID, data)
	s.logDownload(orgCode, batchID, TierNetwork, size)
	return &DownloadResult{Batch: batch, Data: data, Tier: TierNetwork}, nil
}

// DownloadAll 同步元数据后批量下载，单个批次的失败只计入进度，
// 不会中断其余批次。已下载且 Blob 仍在的批次直接按成功计数。
func (s *Service) DownloadAll(ctx context.Context, orgCode string, forceRefresh bool) (entity.ProgressSnapshot, error) {
	_, batches, err := s.FetchMetadata(ctx, orgCode, forceRefresh)
	if err != nil {
		return entity.ProgressSnapshot{}, err
	}

	progress := entity.NewProgress(len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, batch := range batches {
		batch := batch
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if !forceRefresh && batch.Downloaded() {
				exists, err := s.blobs.Exists(gctx, batch.BlobRef)
				if err == nil && exists {
					// 跳过的批次未传输任何字节，只计成功数
					progress.IncrSucceeded(0)
					s.logDownload(orgCode, batch.BatchID, TierBlob, 0)
					return nil
				}
			}

			result, err := s.DownloadOne(gctx, batch.BatchID, orgCode)
			if err != nil {
				progress.IncrFailed()
				s.logger.WithFields(logging.DownloadFields(orgCode, batch.BatchID, TierNetwork, 0)).
					WithError(err).Warn("批次下载失败")
				return nil
			}
			progress.IncrSucceeded(int64(len(result.Data)))
			return nil
		})
	}

	_ = g.Wait()
	progress.Finish()

	snapshot := progress.Snapshot()
	s.logger.WithFields(logging.OrgFields("download_all", orgCode)).
		WithField("succeeded", snapshot.Succeeded).
		WithField("failed", snapshot.Failed).
		Info("批量下载结束")
	return snapshot, ctx.Err()
}

// DeleteOrg 级联删除组织：逐批次清理 Blob 与缓存，再删批次记录与
// 组织记录。删除不存在的条目视为空操作，重复调用安全。
func (s *Service) DeleteOrg(ctx context.Context, orgCode string) (*DeleteResult, error) {
	if err := ValidateOrgCode(orgCode); err != nil {
		return nil, err
	}

	batches, err := s.store.GetBatchesByOrg(ctx, orgCode)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	for _, batch := range batches {
		if batch.BlobRef != "" {
			deleted, err := s.blobs.Delete(ctx, batch.BlobRef)
			if err != nil {
				return nil, err
			}
			if deleted {
				result.BlobsDeleted++
			}
		}
		if err := s.cache.Remove(ctx, batch.BatchID); err != nil {
			return nil, &store.StorageError{Op: "cache_remove", Cause: err}
		}
	}

	deleted, err := s.store.DeleteBatchesByOrg(ctx, orgCode)
	if err != nil {
		return nil, err
	}
	result.BatchesDeleted = deleted

	orgDeleted, err := s.store.DeleteOrg(ctx, orgCode)
	if err != nil {
		return nil, err
	}
	result.OrgDeleted = orgDeleted

	s.logger.WithFields(logging.OrgFields("org_deleted", orgCode)).
		WithField("batches_deleted", result.BatchesDeleted).
		WithField("blobs_deleted", result.BlobsDeleted).
		Info("组织级联删除完成")
	return result, nil
}

// GetBatchInfo 返回单个批次记录，不存在时报 BatchNotFoundError。
func (s *Service) GetBatchInfo(ctx context.Context, batchID string) (*entity.Batch, error) {
	batch, found, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &remote.BatchNotFoundError{BatchID: batchID}
	}
	return batch, nil
}

// refillCache 尽力回填缓存，失败只记日志不影响主路径。
func (s *Service) refillCache(ctx context.Context, orgCode, batchID string, data []byte) {
	if err := s.cache.Put(ctx, batchID, data); err != nil {
		s.logger.WithFields(logging.DownloadFields(orgCode, batchID, TierCache, int64(len(data)))).
			WithError(err).Warn("缓存回填失败")
	}
}

func (s *Service) logDownload(orgCode, batchID, tier string, bytes int64) {
	s.logger.WithFields(logging.DownloadFields(orgCode, batchID, tier, bytes)).Info("批次内容就绪")
}
