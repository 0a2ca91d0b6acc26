// Package minio adapts a MinIO/S3-compatible object store as the listing
// media host. The object key doubles as the opaque media id used for
// deletion.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder for dimension probing
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

type Config struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"listing-media"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`

	// MaxFileBytes caps a single upload; larger payloads are rejected
	// before any network call.
	MaxFileBytes int `yaml:"max_file_bytes" env:"MEDIA_MAX_FILE_BYTES" env-default:"5242880"`
	// MaxEdgePx bounds stored image dimensions; jpeg/png over the limit
	// are downscaled before storage.
	MaxEdgePx int `yaml:"max_edge_px" env:"MEDIA_MAX_EDGE_PX" env-default:"1600"`
}

var allowedFormats = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type MediaStorage struct {
	client       *minio.Client
	bucket       string
	baseURL      string
	maxFileBytes int
	maxEdgePx    int
	logger       *zap.Logger
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*MediaStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", cfg.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to make or verify bucket %s: %w", cfg.Bucket, err)
		}
	}
	log.Info("media storage ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return &MediaStorage{
		client:       client,
		bucket:       cfg.Bucket,
		baseURL:      client.EndpointURL().String(),
		maxFileBytes: cfg.MaxFileBytes,
		maxEdgePx:    cfg.MaxEdgePx,
		logger:       log,
	}, nil
}

// Upload validates, normalizes and stores one image. Size and format
// pre-checks run before any network call; oversized jpeg/png inputs are
// downscaled so stored assets stay bounded regardless of input.
func (s *MediaStorage) Upload(ctx context.Context, data []byte, folder string) (*domain.UploadResult, error) {
	if s.maxFileBytes > 0 && len(data) > s.maxFileBytes {
		return nil, &domain.UploadError{
			Kind: domain.UploadFailureTooLarge,
			Err:  fmt.Errorf("file is %d bytes, limit is %d", len(data), s.maxFileBytes),
		}
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedFormats[contentType]
	if !ok {
		return nil, &domain.UploadError{
			Kind: domain.UploadFailureFormat,
			Err:  fmt.Errorf("unsupported content type %s", contentType),
		}
	}

	width, height := probeDimensions(data, contentType)
	if s.maxEdgePx > 0 && (width > s.maxEdgePx || height > s.maxEdgePx) {
		if scaled, w, h, err := downscale(data, contentType, s.maxEdgePx); err == nil {
			data, width, height = scaled, w, h
		} else {
			s.logger.Warn("failed to downscale image, storing original",
				zap.String("content_type", contentType),
				zap.Error(err),
			)
		}
	}

	objectKey := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		kind := domain.UploadFailureRemote
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.UploadFailureTimeout
		}
		return nil, &domain.UploadError{Kind: kind, Err: err}
	}

	return &domain.UploadResult{
		URL:     fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectKey),
		MediaID: objectKey,
		Width:   width,
		Height:  height,
		Format:  contentType,
		Bytes:   len(data),
	}, nil
}

// Delete removes a stored asset. Callers treat failure as non-fatal.
func (s *MediaStorage) Delete(ctx context.Context, mediaID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, mediaID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s from bucket %s: %w", mediaID, s.bucket, err)
	}
	return nil
}

// Ping verifies connectivity for the deep health probe.
func (s *MediaStorage) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("media host unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s is missing", s.bucket)
	}
	return nil
}

// probeDimensions reads image dimensions without a full decode. WebP has no
// registered decoder here, so its dimensions stay unknown.
func probeDimensions(data []byte, contentType string) (int, int) {
	if contentType == "image/webp" {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// downscale re-encodes jpeg/png images so neither edge exceeds maxEdge.
// Other formats are returned unchanged.
func downscale(data []byte, contentType string, maxEdge int) ([]byte, int, int, error) {
	if contentType != "image/jpeg" && contentType != "image/png" {
		w, h := probeDimensions(data, contentType)
		return data, w, h, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return data, w, h, nil
	}

	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}
	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), dstW, dstH, nil
}
