package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"SeriesVideo-server/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 72 * time.Hour

var MinioClient *minio.Client

// StorageEnabled reports whether finished artifacts go to object storage.
func StorageEnabled() bool {
	return MinioClient != nil
}

// InitMinIO connects to object storage. An empty endpoint leaves storage off
// and artifacts stay on local disk.
func InitMinIO() {
	cfg := config.AppConfig.MinIO
	if cfg.Endpoint == "" {
		log.Println("[storage] minio endpoint not set, keeping videos on local disk")
		return
	}
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatalf("minio init failed: %v", err)
	}
	log.Println("[storage] minio connected")
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	}
	return "application/octet-stream"
}

func objectName(seriesID, localPath string) string {
	return fmt.Sprintf("series/%s/%s", seriesID, filepath.Base(localPath))
}

func ensureBucket(ctx context.Context, bucket string) error {
	exists, err := MinioClient.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket failed: %w", err)
	}
	if exists {
		return nil
	}
	if err := MinioClient.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket failed: %w", err)
	}
	log.Printf("[storage] bucket %q created", bucket)
	return nil
}

// UploadFile puts a local file in the bucket and returns a presigned URL.
func UploadFile(ctx context.Context, localPath, object string) (string, error) {
	bucket := config.AppConfig.MinIO.Bucket
	if err := ensureBucket(ctx, bucket); err != nil {
		return "", err
	}
	_, err := MinioClient.FPutObject(ctx, bucket, object, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio failed: %w", err)
	}

	log.Printf("[storage] uploaded %s", object)
	if domain := config.AppConfig.MinIO.Domain; domain != "" {
		return publicURL(domain, bucket, object), nil
	}
	presigned, err := MinioClient.PresignedGetObject(ctx, bucket, object, presignExpiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign url failed: %w", err)
	}
	return presigned.String(), nil
}

// publicURL builds a plain URL for buckets served behind a public domain.
func publicURL(domain, bucket, object string) string {
	return strings.TrimRight(domain, "/") + "/" + bucket + "/" + object
}
