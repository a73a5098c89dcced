package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yourusername/examprep-api/internal/config"
)

// StorageProvider - хранилище файлов (изображения вопросов)
type StorageProvider interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
	GetURL(objectName string) string
}

// LocalStorageProvider хранит файлы на локальном диске
type LocalStorageProvider struct {
	basePath      string
	publicBaseURL string
}

// NewLocalStorageProvider создает локальное хранилище
func NewLocalStorageProvider(basePath, publicBaseURL string) *LocalStorageProvider {
	return &LocalStorageProvider{basePath: basePath, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (p *LocalStorageProvider) resolve(objectName string) (string, error) {
	clean := filepath.Clean("/" + objectName)
	dst := filepath.Join(p.basePath, clean)
	if !strings.HasPrefix(dst, filepath.Clean(p.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("object name %q escapes storage root", objectName)
	}
	return dst, nil
}

func (p *LocalStorageProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, objectName string) error {
	dst, err := p.resolve(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *LocalStorageProvider) GetURL(objectName string) string {
	return p.publicBaseURL + "/" + strings.TrimLeft(objectName, "/")
}

// MinioStorageProvider хранит файлы в MinIO / S3-совместимом хранилище
type MinioStorageProvider struct {
	bucket        string
	publicBaseURL string
	client        *minio.Client
}

// NewMinioStorageProvider создает клиента MinIO и при необходимости бакет
func NewMinioStorageProvider(ctx context.Context, cfg config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("[Storage] Created bucket %s", cfg.MinioBucket)
	}

	publicBaseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBaseURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}

	return &MinioStorageProvider{bucket: cfg.MinioBucket, publicBaseURL: publicBaseURL, client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, objectName string) error {
	return p.client.RemoveObject(ctx, p.bucket, objectName, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(objectName string) string {
	return p.publicBaseURL + "/" + strings.TrimLeft(objectName, "/")
}

// NewStorageProvider выбирает реализацию хранилища по конфигурации
func NewStorageProvider(ctx context.Context, cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioStorageProvider(ctx, cfg)
	case "local", "":
		return NewLocalStorageProvider(cfg.LocalPath, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
