package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"backend-recordpath/internal/archive"
	"backend-recordpath/internal/config"
	"backend-recordpath/internal/db"
	"backend-recordpath/internal/export"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the part of *minio.Client the service needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewMinioClient connects to the configured endpoint. It returns nil
// without error when no endpoint is configured.
func NewMinioClient(cfg config.Config) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// Service uploads journey exports and records each object in postgres.
type Service struct {
	objects ObjectStore
	db      db.Querier
	bucket  string
	format  export.Format

	mu          sync.Mutex
	bucketReady bool
}

func NewService(objects ObjectStore, q db.Querier, bucket string) *Service {
	return &Service{objects: objects, db: q, bucket: bucket, format: export.FormatGPX}
}

// EnsureBucket creates the bucket on first use.
func (s *Service) EnsureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.objects.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		log.Printf("storage: created bucket %s", s.bucket)
	}
	s.bucketReady = true
	return nil
}

func ObjectKey(journeyID string, f export.Format) string {
	return "journeys/" + journeyID + f.Extension()
}

// Archive uploads the journey export. Uploading the same journey again
// overwrites the object with identical content.
func (s *Service) Archive(ctx context.Context, rec archive.Record) error {
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, rec.Journey, s.format); err != nil {
		return fmt.Errorf("encode journey %s: %w", rec.Journey.ID, err)
	}

	key := ObjectKey(rec.Journey.ID, s.format)
	info, err := s.objects.PutObject(ctx, s.bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: s.format.ContentType()})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	log.Printf("storage: uploaded %s/%s (%d bytes)", s.bucket, key, info.Size)

	if s.db == nil {
		return nil
	}
	_, err = s.SaveObject(ctx, rec.DeviceID, rec.Journey.ID, key, string(s.format), int64(buf.Len()))
	return err
}

func (s *Service) SaveObject(ctx context.Context, deviceID, journeyID, key, kind string, size int64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, device_id, journey_id, bucket, object_key, kind, size_bytes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (bucket, object_key) DO UPDATE SET size_bytes = EXCLUDED.size_bytes
	`, id, deviceID, journeyID, s.bucket, key, kind, size)
	if err != nil {
		return "", err
	}
	return id, nil
}
