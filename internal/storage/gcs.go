package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSMirror archives objects to a Google Cloud Storage bucket.
type GCSMirror struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSMirror creates a mirror backed by the given bucket. With an
// empty credentialsFile the application default credentials are used.
func NewGCSMirror(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSMirror, error) {
	var client *gcs.Client
	var err error

	if credentialsFile != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = gcs.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSMirror{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *GCSMirror) Put(ctx context.Context, name string, r io.Reader) error {
	w := m.client.Bucket(m.bucket).Object(m.object(name)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %s: %w", name, err)
	}
	return nil
}

func (m *GCSMirror) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.client.Bucket(m.bucket).Object(m.object(name)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", name, err)
}

func (m *GCSMirror) Close() error {
	return m.client.Close()
}

func (m *GCSMirror) object(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}
