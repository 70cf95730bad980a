package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aihub/doctools/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore 只读的对象存储，用于导入Markdown时按 s3://bucket/key 加载图片
type MinIOStore struct {
	client  *minio.Client
	maxSize int64
}

// NewMinIOStore 创建MinIO客户端；maxSize为单个对象的读取上限，0表示不限制
func NewMinIOStore(cfg config.ObjectStorageConfig, maxSize int64) (*MinIOStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}

	// 移除协议前缀（如果有），因为 minio.New 不需要协议
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{client: client, maxSize: maxSize}, nil
}

// GetObject 读取整个对象
func (s *MinIOStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	var r io.Reader = obj
	if s.maxSize > 0 {
		r = io.LimitReader(obj, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("object %s/%s exceeds %d bytes", bucket, key, s.maxSize)
	}
	return data, nil
}

// HealthCheck 执行健康检查
func (s *MinIOStore) HealthCheck(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	_, err := s.client.ListBuckets(ctx)
	return err
}
