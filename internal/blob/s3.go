package blob

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/batch-hub/batch-hub/internal/config"
)

func init() {
	MustRegister(config.BlobBackendS3, func(cfg config.StorageConfig) (Store, error) {
		return NewS3Store(cfg)
	})
}

// S3Store 基于 Amazon S3 的 Blob 后端。对象键即不透明 ID，
// 原始文件名与调用方元数据存入对象的 S3 metadata。
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store 按存储配置构造 S3 后端。未提供静态密钥时
// 回退到默认凭证链（环境变量、实例角色等）。
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, newStorageError("init", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
	}, nil
}

// Put 上传对象并返回新分配的 ID。
func (s *S3Store) Put(ctx context.Context, data []byte, name string, metadata map[string]string) (string, error) {
	id := uuid.NewString()

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["original-name"] = name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(id),
		Body:     bytes.NewReader(data),
		Metadata: meta,
	})
	if err != nil {
		return "", newStorageError("put", err)
	}
	return id, nil
}

// Get 下载对象内容，键不存在时返回 found=false。
func (s *S3Store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, newStorageError("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, newStorageError("get", err)
	}
	return data, true, nil
}

// Delete 删除对象。S3 删除不存在的键也会成功，因此先探测存在性。
func (s *S3Store) Delete(ctx context.Context, id string) (bool, error) {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return false, newStorageError("delete", err)
	}
	return true, nil
}

// Exists 通过 HeadObject 报告对象是否存在。
func (s *S3Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, newStorageError("exists", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
