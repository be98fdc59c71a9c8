package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"cv-parser-go/internal/config"
	"cv-parser-go/internal/logger"
)

// MinIO 可选的原始文件归档组件
type MinIO struct {
	client *minio.Client
	bucket string
	cfg    *config.MinIOConfig
}

// NewMinIO 创建MinIO客户端并确保存储桶与生命周期规则就绪
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO Endpoint不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.OriginalsBucket
	if bucket == "" {
		bucket = "cv-originals"
	}

	m := &MinIO{client: client, bucket: bucket, cfg: cfg}
	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		return nil, err
	}

	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), bucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			// 生命周期规则失败不阻塞启动
			logger.Warn().Err(err).Str("bucket", bucket).Msg("设置生命周期规则失败")
		}
	}
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 失败: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// GenerateObjectName 生成带时间戳的唯一对象名
// 格式: {base50}_{YYYYMMDD_HHMMSS}_{jobid8}.{ext}
// 基础名只保留字母数字和-_，截断到50字符；没有扩展名时使用 bin
func GenerateObjectName(originalFilename, jobID string, now time.Time) string {
	base := originalFilename
	ext := "bin"
	if idx := strings.LastIndex(originalFilename, "."); idx > 0 {
		base = originalFilename[:idx]
		ext = originalFilename[idx+1:]
	}

	var sb strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	cleaned := sb.String()
	if len(cleaned) > 50 {
		cleaned = cleaned[:50]
	}

	timestamp := now.Format("20060102_150405")
	jobShort := jobID
	if idx := strings.Index(jobID, "-"); idx > 0 {
		jobShort = jobID[:idx]
	}
	if jobShort == "" {
		return fmt.Sprintf("%s_%s.%s", cleaned, timestamp, ext)
	}
	return fmt.Sprintf("%s_%s_%s.%s", cleaned, timestamp, jobShort, ext)
}

// SaveOriginal 上传原始文件，返回 bucket/objectName 格式的存储路径
func (m *MinIO) SaveOriginal(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s 失败: %w", objectName, err)
	}
	return fmt.Sprintf("%s/%s", m.bucket, objectName), nil
}

// GetOriginal 下载原始文件，objectKey 可以带桶名前缀
func (m *MinIO) GetOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	objectName := strings.TrimPrefix(objectKey, m.bucket+"/")
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectName, err)
	}
	return data, nil
}
