package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// RecordingBackend 录音对象的落盘位置，key 形如 recordings/<用户>/<日期>/<文件>
type RecordingBackend interface {
	Put(ctx context.Context, key, localPath, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// DiskRecordings 保存到本地目录，通过 /uploads 静态路由访问
type DiskRecordings struct {
	Root string
}

func (d *DiskRecordings) Put(_ context.Context, key, localPath, _ string) (string, error) {
	dst := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	// 临时文件在同一文件系统时直接改名
	if err := os.Rename(localPath, dst); err == nil {
		return d.URL(key), nil
	}
	if err := copyFile(dst, localPath); err != nil {
		os.Remove(dst)
		return "", err
	}
	return d.URL(key), nil
}

func (d *DiskRecordings) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(d.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DiskRecordings) URL(key string) string {
	return "/uploads/" + key
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MinioRecordings MinIO 桶
type MinioRecordings struct {
	Bucket string
	Client *minio.Client
}

func NewMinioRecordings(cfg *config.StorageConfig) (*MinioRecordings, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
	})
	if err != nil {
		return nil, err
	}
	return &MinioRecordings{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (m *MinioRecordings) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	if _, err := m.Client.FPutObject(ctx, m.Bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", err
	}
	return m.URL(key), nil
}

func (m *MinioRecordings) Remove(ctx context.Context, key string) error {
	return m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioRecordings) URL(key string) string {
	return "/" + m.Bucket + "/" + key
}

// OSSRecordings 阿里云 OSS 桶
type OSSRecordings struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSRecordings(cfg *config.StorageConfig) (*OSSRecordings, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSRecordings{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (o *OSSRecordings) Put(_ context.Context, key, localPath, contentType string) (string, error) {
	var opts []oss.Option
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := o.Bucket.PutObjectFromFile(key, localPath, opts...); err != nil {
		return "", err
	}
	return o.URL(key), nil
}

func (o *OSSRecordings) Remove(_ context.Context, key string) error {
	return o.Bucket.DeleteObject(key)
}

func (o *OSSRecordings) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", o.Bucket.BucketName, o.Endpoint, key)
}

// StorageService 里程碑录音存储，按配置选择后端，初始化失败回退本地目录
type StorageService struct {
	Backend RecordingBackend
}

func NewStorageService(cfg *config.Config) *StorageService {
	var backend RecordingBackend
	var err error
	switch cfg.Storage.Type {
	case util.StorageMinio:
		backend, err = NewMinioRecordings(&cfg.Storage)
	case util.StorageOSS:
		backend, err = NewOSSRecordings(&cfg.Storage)
	}
	if err != nil {
		logger.Log.Error("Failed to init recording storage, falling back to local",
			zap.String("type", cfg.Storage.Type), zap.Error(err))
		backend = nil
	}
	if backend == nil {
		backend = &DiskRecordings{Root: cfg.Storage.LocalPath}
	}
	return &StorageService{Backend: backend}
}

// RecordingKey 录音对象名：recordings/<用户>/<日期>/<uuid><扩展名>
func RecordingKey(userID uint, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".webm"
	}
	return path.Join("recordings", fmt.Sprint(userID), now.Format("20060102"), model.GenerateUUID()+ext)
}

// StoreRecording 上传本地录音文件，返回对象名和访问地址
func (s *StorageService) StoreRecording(ctx context.Context, userID uint, filename, localPath, contentType string) (string, string, error) {
	key := RecordingKey(userID, filename, time.Now())
	url, err := s.Backend.Put(ctx, key, localPath, contentType)
	if err != nil {
		return "", "", fmt.Errorf("upload recording: %w", err)
	}
	return key, url, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Backend.Remove(ctx, key)
}
