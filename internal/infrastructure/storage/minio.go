package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/pkg/config"
)

// commitKey is written last by PutAll; a prefix without it is incomplete.
const commitKey = "transcript.json"

// MinIOStore keeps artifacts as objects in one bucket, keyed
// <meetingId>/<artifact>.
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinIOStore creates a new MinIO-backed artifact store and ensures the
// bucket exists.
func NewMinIOStore(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*MinIOStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOStore{
		client: minioClient,
		bucket: cfg.BucketName,
		logger: logger,
	}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}
	return store, nil
}

func (m *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		if m.logger != nil {
			m.logger.Info("🪣 Created bucket", zap.String("bucket", m.bucket))
		}
	}
	return nil
}

// Get implements repositories.ArtifactReader.
func (m *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.translate(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.translate(err)
	}
	return data, nil
}

func (m *MinIOStore) translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return repositories.ErrArtifactNotFound
	}
	return err
}

// PutAll uploads objects with the commit key last, then removes objects
// under prefix that are no longer part of the set.
func (m *MinIOStore) PutAll(ctx context.Context, prefix string, objects map[string][]byte) error {
	dir := strings.Trim(prefix, "/") + "/"
	existing, err := m.listKeys(ctx, dir)
	if err != nil {
		return err
	}

	cleaned := make(map[string][]byte, len(objects))
	keys := make([]string, 0, len(objects))
	for k, data := range objects {
		key := path.Clean(k)
		if !strings.HasPrefix(key, dir) {
			return fmt.Errorf("artifact %q is outside prefix %q", k, prefix)
		}
		cleaned[key] = data
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := path.Base(keys[i]) == commitKey, path.Base(keys[j]) == commitKey
		if ci != cj {
			return cj
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		data := cleaned[key]
		_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType(key),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}

	for _, key := range existing {
		if _, keep := cleaned[key]; keep {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil && m.logger != nil {
			m.logger.Warn("⚠️ Failed to remove stale artifact",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Exists implements repositories.ArtifactRepository.
func (m *MinIOStore) Exists(ctx context.Context, prefix string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    strings.Trim(prefix, "/") + "/",
		Recursive: true,
		MaxKeys:   1,
	})
	for object := range objectCh {
		if object.Err != nil {
			return false, fmt.Errorf("error listing objects: %w", object.Err)
		}
		return true, nil
	}
	return false, nil
}

// ListPrefixes implements repositories.ArtifactRepository.
func (m *MinIOStore) ListPrefixes(ctx context.Context) ([]string, error) {
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Recursive: false,
	})

	var ids []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			ids = append(ids, strings.TrimSuffix(object.Key, "/"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeletePrefix implements repositories.ArtifactRepository.
func (m *MinIOStore) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := m.listKeys(ctx, strings.Trim(prefix, "/")+"/")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return nil
}

// Location implements repositories.ArtifactRepository.
func (m *MinIOStore) Location(prefix string) string {
	return fmt.Sprintf("s3://%s/%s", m.bucket, strings.Trim(prefix, "/"))
}

func (m *MinIOStore) listKeys(ctx context.Context, prefix string) ([]string, error) {
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

var _ repositories.ArtifactRepository = (*MinIOStore)(nil)
