package localfs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelforge/internal/ports"
)

// LocalFS implements ports.StorageProvider using the local filesystem.
// It stores objects under a configured root directory. Public URLs are
// derived from a base URL pointing at whatever serves that directory.
type LocalFS struct {
	root          string
	publicBaseURL string
}

func New(root, publicBaseURL string) *LocalFS {
	return &LocalFS{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	dst := filepath.Join(l.root, filepath.FromSlash(in.ObjectKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	outF, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer outF.Close()

	n, err := io.Copy(outF, in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{
		ObjectKey: in.ObjectKey,
		Size:      n,
		PublicURL: l.publicURL(in.ObjectKey),
	}, nil
}

func (l *LocalFS) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	p := filepath.Join(l.root, filepath.FromSlash(objectKey))
	f, err := os.Open(p)
	if err != nil {
		return nil, "", 0, err
	}

	st, statErr := f.Stat()
	if statErr == nil {
		size = st.Size()
	}

	// Prefer extension-based type. If empty, sniff first bytes.
	contentType = mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, 0)
		contentType = http.DetectContentType(buf[:n])
	}

	return f, contentType, size, nil
}

func (l *LocalFS) DeleteObject(ctx context.Context, objectKey string) error {
	p := filepath.Join(l.root, filepath.FromSlash(objectKey))
	return os.Remove(p)
}

func (l *LocalFS) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	// Local provider has no real signed URLs; the public URL is stable.
	return ports.SignedURLOutput{
		URL:       l.publicURL(objectKey),
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}, nil
}

func (l *LocalFS) publicURL(objectKey string) string {
	if l.publicBaseURL == "" {
		return ""
	}
	return l.publicBaseURL + "/" + strings.TrimLeft(objectKey, "/")
}
