package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Bucket is an object store on the local disk whose objects are served
// under publicURL. It stands in for a hosted bucket in single-node setups.
type Bucket struct {
	store     *Storage
	publicURL string
}

func NewBucket(dir, publicURL string) (*Bucket, error) {
	store, err := New(dir)
	if err != nil {
		return nil, err
	}
	return &Bucket{store: store, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (b *Bucket) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	if _, err := b.store.Save(ctx, name, f); err != nil {
		return "", err
	}
	return b.publicURL + "/" + name, nil
}

func (b *Bucket) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, b.publicURL+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return errors.New("url does not belong to this bucket")
	}
	return b.store.Remove(ctx, name)
}

// Open serves a stored object by name.
func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return b.store.Open(ctx, name)
}
