package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload describes one file handed to the store.
type Upload struct {
	FileName string
	MimeType string
	Reader   io.Reader
}

// Stored is the durable result of an upload.
type Stored struct {
	URL      string
	FileSize int64
	MimeType string
}

// Client stores attachment bytes and returns durable metadata. Callers must
// treat each upload as individually fallible and apply their own deadline.
type Client interface {
	Upload(ctx context.Context, requestID string, upload Upload, uploaderID string) (*Stored, error)
}

// DiskClient stores blobs on the local filesystem under one directory per
// request, serving them back through a static file route.
type DiskClient struct {
	baseDir string
	baseURL string
}

// NewDiskClient builds a disk-backed client.
func NewDiskClient(baseDir, baseURL string) *DiskClient {
	return &DiskClient{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *DiskClient) Upload(ctx context.Context, requestID string, upload Upload, uploaderID string) (*Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.baseDir, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}

	key := uuid.NewString() + sanitizeExt(upload.FileName)
	path := filepath.Join(dir, key)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create blob file: %w", err)
	}
	defer file.Close()

	size, err := copyWithContext(ctx, file, upload.Reader)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write blob: %w", err)
	}

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(upload.FileName))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &Stored{
		URL:      fmt.Sprintf("%s/%s/%s", c.baseURL, requestID, key),
		FileSize: size,
		MimeType: mimeType,
	}, nil
}

// copyWithContext copies in chunks, honoring cancellation between chunks so a
// stalled reader cannot outlive the caller's deadline by much.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func sanitizeExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
