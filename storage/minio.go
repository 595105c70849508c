package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig addresses an S3 compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIO stores files as objects in a single bucket.
type MinIO struct {
	bucket string
	client *minio.Client
}

// NewMinIO connects to the endpoint and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	m := &MinIO{bucket: cfg.Bucket, client: cl}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *MinIO) Save(ctx context.Context, name string, data []byte, contentType string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Remove deletes the object. Missing objects are reported as ErrNotExist.
func (m *MinIO) Remove(ctx context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if _, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{}); err != nil {
		return translate(err)
	}
	return m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{})
}

func (m *MinIO) Open(ctx context.Context, name string) (*Object, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	// GetObject is lazy; Stat performs the request and surfaces NoSuchKey
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, translate(err)
	}
	return &Object{Body: obj, Size: info.Size, ContentType: info.ContentType}, nil
}

func translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotExist
	}
	return err
}
